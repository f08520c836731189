package carrier

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	ini "gopkg.in/ini.v1"
)

// Carrier configuration keys understood by IsCarrierConfigEnabled.
const (
	KeyVideoCRBT           = "config_enable_video_crbt"
	KeyHideMe              = "config_enable_hide_me"
	KeyTransmitStaticImage = "config_transmit_static_image"
	KeyConferenceDialer    = "config_enable_conference_dialer"
	KeyCallDeflection      = "call_deflection"
	KeyCancelModifyCall    = "cancel_modify_call"
	KeyStaticImageURI      = "static_image_uri"
	KeyCallDeflectNumber   = "call_deflect_number"
)

const (
	defaultCarrierSection = "carrier"
	settingsSection       = "settings"
)

// DefaultAutoFullscreenDelay is used when the settings do not name a delay.
const DefaultAutoFullscreenDelay = 5 * time.Second

// Config answers carrier configuration queries for a SIM slot.
type Config interface {
	IsCallDeflectionSupported(phoneID int) bool
	IsCancelModifyCallSupported(phoneID int) bool
	IsCarrierConfigEnabled(phoneID int, key string) bool
	StaticImageURI(phoneID int) string
	CallDeflectNumber(phoneID int) string
}

// TTYMode is the host TTY setting.
type TTYMode int

const (
	TTYOff  TTYMode = 0
	TTYFull TTYMode = 1
	TTYHco  TTYMode = 2
	TTYVco  TTYMode = 3
)

func (m TTYMode) String() string {
	switch m {
	case TTYOff:
		return "OFF"
	case TTYFull:
		return "FULL"
	case TTYHco:
		return "HCO"
	case TTYVco:
		return "VCO"
	default:
		return fmt.Sprintf("Unknown(%d)", m)
	}
}

// Settings are host (not carrier) settings the core reads.
type Settings struct {
	// PipModeSelectable enables the PIP_MODE action ("disable_pip_mode").
	PipModeSelectable              bool
	LocalPreviewSurfaceSize        string
	AutoFullscreen                 bool
	AutoFullscreenDelay            time.Duration
	TTYMode                        TTYMode
	AddParticipantOnlyInConference bool
	CameraPermissionDialogAllowed  bool
}

// FileConfig is a Config backed by an INI document. Section [carrier] holds
// defaults, [carrier.N] overrides for phone N, and [settings] host settings.
type FileConfig struct {
	mu   sync.RWMutex
	file *ini.File
}

var _ Config = (*FileConfig)(nil)

// LoadFile parses an INI source: a file path, or raw []byte.
func LoadFile(source any) (*FileConfig, error) {
	f, err := ini.Load(source)
	if err != nil {
		return nil, fmt.Errorf("load carrier config: %w", err)
	}
	return &FileConfig{file: f}, nil
}

// Empty returns a config with every flag off.
func Empty() *FileConfig {
	return &FileConfig{file: ini.Empty()}
}

// Reload replaces the document. Callers announce the change to the core.
func (c *FileConfig) Reload(source any) error {
	f, err := ini.Load(source)
	if err != nil {
		return fmt.Errorf("reload carrier config: %w", err)
	}
	c.mu.Lock()
	c.file = f
	c.mu.Unlock()
	return nil
}

// key resolves a key for a phone, falling back to the [carrier] defaults.
func (c *FileConfig) key(phoneID int, name string) *ini.Key {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, sname := range []string{defaultCarrierSection + "." + strconv.Itoa(phoneID), defaultCarrierSection} {
		sec, err := c.file.GetSection(sname)
		if err != nil {
			continue
		}
		if k, err := sec.GetKey(name); err == nil {
			return k
		}
	}
	return nil
}

func (c *FileConfig) boolKey(phoneID int, name string) bool {
	if k := c.key(phoneID, name); k != nil {
		return k.MustBool(false)
	}
	return false
}

func (c *FileConfig) stringKey(phoneID int, name string) string {
	if k := c.key(phoneID, name); k != nil {
		return strings.TrimSpace(k.String())
	}
	return ""
}

func (c *FileConfig) IsCallDeflectionSupported(phoneID int) bool {
	return c.boolKey(phoneID, KeyCallDeflection)
}

func (c *FileConfig) IsCancelModifyCallSupported(phoneID int) bool {
	return c.boolKey(phoneID, KeyCancelModifyCall)
}

func (c *FileConfig) IsCarrierConfigEnabled(phoneID int, key string) bool {
	return c.boolKey(phoneID, key)
}

func (c *FileConfig) StaticImageURI(phoneID int) string {
	return c.stringKey(phoneID, KeyStaticImageURI)
}

func (c *FileConfig) CallDeflectNumber(phoneID int) string {
	return c.stringKey(phoneID, KeyCallDeflectNumber)
}

// Settings reads the [settings] section.
func (c *FileConfig) Settings() Settings {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Settings{}
	sec, err := c.file.GetSection(settingsSection)
	if err != nil {
		s.AutoFullscreenDelay = DefaultAutoFullscreenDelay
		s.CameraPermissionDialogAllowed = true
		return s
	}
	s.PipModeSelectable = sec.Key("disable_pip_mode").MustBool(false)
	s.LocalPreviewSurfaceSize = strings.TrimSpace(sec.Key("local_preview_surface_size").String())
	s.AutoFullscreen = sec.Key("auto_fullscreen").MustBool(false)
	s.AutoFullscreenDelay = sec.Key("auto_fullscreen_delay").MustDuration(DefaultAutoFullscreenDelay)
	s.TTYMode = TTYMode(sec.Key("preferred_tty_mode").MustInt(int(TTYOff)))
	s.AddParticipantOnlyInConference = sec.Key("add_participant_only_in_conference").MustBool(false)
	s.CameraPermissionDialogAllowed = sec.Key("camera_permission_dialog_allowed").MustBool(true)
	return s
}
