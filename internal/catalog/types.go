package catalog

import (
	"strings"
	"time"
)

// Recording is one archived broadcast.
type Recording struct {
	ID         uint32    `json:"id"`
	ChannelID  uint32    `json:"channelId"`
	State      string    `json:"state"`
	Name       string    `json:"name"`
	TypeID     uint32    `json:"typeId"`
	Duration   float64   `json:"duration"`
	TotalViews uint32    `json:"totalViews"`
	ContentID  string    `json:"contentId"`
	CreatedAt  time.Time `json:"createdAt"`
	ExpiresAt  time.Time `json:"expiresAt"`
	VODs       []VOD     `json:"vods"`
}

// VOD is one rendition of a recording.
type VOD struct {
	ID          uint32   `json:"id"`
	BaseURL     string   `json:"baseUrl"`
	Format      string   `json:"format"`
	RecordingID uint32   `json:"recordingId"`
	Data        *VODData `json:"data,omitempty"`
}

// VODData describes the encoded stream of a VOD.
type VODData struct {
	Width   uint32  `json:"width"`
	Height  uint32  `json:"height"`
	FPS     float64 `json:"fps"`
	Bitrate uint32  `json:"bitrate"`
}

// SourceURL returns the raw source.mp4 location, or "" when the recording
// has no raw rendition.
func (r Recording) SourceURL() string {
	for _, vod := range r.VODs {
		if vod.Format != "raw" || strings.TrimSpace(vod.BaseURL) == "" {
			continue
		}
		base := vod.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		return base + "source.mp4"
	}
	return ""
}
