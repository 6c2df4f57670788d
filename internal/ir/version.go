package ir

// Version is the tally release version, reported by `tally --version`.
const Version = "0.1.0"
