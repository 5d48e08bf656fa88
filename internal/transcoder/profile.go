// Package transcoder submits jobs to the external transcoding service.
package transcoder

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Profile describes the single output rendition every job is encoded
// with. The values are configuration, not something the handlers decide
// per event.
type Profile struct {
	// Extension is the lower-case input filter; only keys with this
	// suffix are transcoded.
	Extension string `yaml:"extension"`

	// DestinationPrefix is the key prefix under the destination bucket.
	DestinationPrefix string `yaml:"destinationPrefix"`

	// QVBRQualityLevel and MaxBitrate drive the H.264 quality policy.
	QVBRQualityLevel int32 `yaml:"qvbrQualityLevel"`
	MaxBitrate       int32 `yaml:"maxBitrate"`
}

// DefaultProfile matches the reference deployment: MP4/H.264, QVBR 7
// capped at 5 Mbps, outputs under processed/.
func DefaultProfile() Profile {
	return Profile{
		Extension:         ".mp4",
		DestinationPrefix: "processed/",
		QVBRQualityLevel:  7,
		MaxBitrate:        5_000_000,
	}
}

// LoadProfile reads a profile from a YAML file. Fields left unset fall
// back to the default profile.
func LoadProfile(path string) (Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("read profile: %w", err)
	}

	p := DefaultProfile()
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Profile{}, fmt.Errorf("parse profile %s: %w", path, err)
	}
	if err := p.validate(); err != nil {
		return Profile{}, fmt.Errorf("profile %s: %w", path, err)
	}
	return p, nil
}

// Matches reports whether an object key is eligible for transcoding.
// The comparison is case-insensitive, so CLIP.MP4 is eligible.
func (p Profile) Matches(key string) bool {
	return strings.HasSuffix(strings.ToLower(key), strings.ToLower(p.Extension))
}

func (p Profile) validate() error {
	if p.Extension == "" || !strings.HasPrefix(p.Extension, ".") {
		return fmt.Errorf("invalid extension %q", p.Extension)
	}
	if p.QVBRQualityLevel < 1 || p.QVBRQualityLevel > 10 {
		return fmt.Errorf("qvbrQualityLevel %d out of range", p.QVBRQualityLevel)
	}
	if p.MaxBitrate <= 0 {
		return fmt.Errorf("maxBitrate %d out of range", p.MaxBitrate)
	}
	return nil
}
