// internal/app/system/limits/limits.go
package limits

// Size limits for inbound updates and outbound messages.
const (
	// MaxUpdateBody is the maximum size of a webhook update body.
	MaxUpdateBody = 1 << 20 // 1 MB

	// MaxMessageText is the Bot API limit for a text message, in characters.
	MaxMessageText = 4096

	// MaxCaption is the Bot API limit for a photo or video caption, in characters.
	MaxCaption = 1024
)
