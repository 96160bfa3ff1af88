package feature

// StopList routes features matching Match to RecorderName instead of the
// recorder that originally received the write.
type StopList struct {
	// RecorderName is the recorder stoplisted features are routed to.
	RecorderName string
	// Match reports whether the given raw (unquoted) feature/context
	// pair should be diverted to RecorderName.
	Match func(feature, context string) bool
}
