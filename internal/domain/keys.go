package domain

// KeyPrefix namespaces every storage key. Set once at startup from
// config before any repository is constructed.
var KeyPrefix = "catsearch:"
