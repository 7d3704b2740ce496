// Package tone synthesizes PCM test tones for the outbound instruction path.
package tone
