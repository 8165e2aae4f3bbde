// Package types defines the Pokemon entity and its validated components, the
// Repository interface every storage backend implements, the backend Config,
// and the standard error values shared by all backends.
//
// Entities can only be built from values that already passed their
// constructors (NewNumber, NewName, NewTypes), so a Pokemon in hand is always
// valid. Backends that read from external storage run those same
// constructors again before handing data back.
package types
