// Package protocol decodes and validates result messages posted by a
// sandbox realm. Nothing from a realm is trusted before Validate accepts it.
package protocol
