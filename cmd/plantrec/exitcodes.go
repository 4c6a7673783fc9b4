package main

// Exit codes
const (
	ExitSuccess          = 0 // Success
	ExitError            = 1 // General error (invalid arguments, runtime failure)
	ExitConfigError      = 2 // Configuration error (missing config, invalid paths)
	ExitDataError        = 3 // Data error (schema mismatch, value outside its domain)
	ExitInsufficientData = 4 // Fewer species than clusters
	ExitNoMatches        = 5 // No species share the query's cluster
)
