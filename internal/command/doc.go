// Package command defines the text command vocabulary spoken by the device
// and converts classified text frames into typed commands.
package command
