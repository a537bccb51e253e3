package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

type Camera struct {
	Backend      string `yaml:"backend" toml:"backend"` // "sim" | "file"
	File         string `yaml:"file,omitempty" toml:"file,omitempty"`
	Loop         bool   `yaml:"loop" toml:"loop"`
	Position     string `yaml:"position" toml:"position"` // "back" | "front"
	Mode         string `yaml:"mode" toml:"mode"`         // "photo" | "video" | "portrait"
	Flash        string `yaml:"flash" toml:"flash"`       // "auto" | "on" | "off"
	FPS          int    `yaml:"fps" toml:"fps"`
	Width        int    `yaml:"width" toml:"width"`
	Height       int    `yaml:"height" toml:"height"`
	PreviewWidth int    `yaml:"preview_width" toml:"preview_width"`
}

type Zoom struct {
	Ceilings map[string]float64 `yaml:"ceilings" toml:"ceilings"`
}

type LUT struct {
	Dir       string  `yaml:"dir" toml:"dir"`
	Select    string  `yaml:"select,omitempty" toml:"select,omitempty"`
	Intensity float64 `yaml:"intensity" toml:"intensity"`
	Watch     bool    `yaml:"watch" toml:"watch"`
}

type Library struct {
	Dir     string `yaml:"dir" toml:"dir"`
	Quality int    `yaml:"quality" toml:"quality"`
}

type Permission struct {
	Camera         string `yaml:"camera" toml:"camera"`   // "authorized" | "denied" | "restricted" | "not_determined"
	Library        string `yaml:"library" toml:"library"` // same values
	GrantOnRequest bool   `yaml:"grant_on_request" toml:"grant_on_request"`
}

type Flash struct {
	Driver  string `yaml:"driver" toml:"driver"` // "spi" | "console" | "none"
	SPIPort string `yaml:"spi_port,omitempty" toml:"spi_port,omitempty"`
	Pixels  int    `yaml:"pixels" toml:"pixels"`
	HoldMs  int    `yaml:"hold_ms" toml:"hold_ms"`
}

type Server struct {
	Addr        string `yaml:"addr" toml:"addr"`
	PreviewFPS  int    `yaml:"preview_fps" toml:"preview_fps"`
	JPEGQuality int    `yaml:"jpeg_quality" toml:"jpeg_quality"`
}

type Log struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"` // "console" | "json"
}

type Config struct {
	Camera     Camera     `yaml:"camera" toml:"camera"`
	Zoom       Zoom       `yaml:"zoom" toml:"zoom"`
	LUT        LUT        `yaml:"lut" toml:"lut"`
	Library    Library    `yaml:"library" toml:"library"`
	Permission Permission `yaml:"permission" toml:"permission"`
	Flash      Flash      `yaml:"flash" toml:"flash"`
	Server     Server     `yaml:"server" toml:"server"`
	Log        Log        `yaml:"log" toml:"log"`
}

func Default() *Config {
	return &Config{
		Camera: Camera{
			Backend:      "sim",
			Position:     "back",
			Mode:         "photo",
			Flash:        "auto",
			FPS:          30,
			Width:        360,
			Height:       640,
			PreviewWidth: 240,
		},
		Zoom: Zoom{Ceilings: map[string]float64{"photo": 6, "video": 4, "portrait": 3}},
		LUT:  LUT{Dir: "luts", Intensity: 1, Watch: true},
		Library: Library{
			Dir:     "photos",
			Quality: 92,
		},
		Permission: Permission{Camera: "not_determined", Library: "authorized", GrantOnRequest: true},
		Flash:      Flash{Driver: "none", Pixels: 16, HoldMs: 120},
		Server:     Server{Addr: ":8080", PreviewFPS: 15, JPEGQuality: 70},
		Log:        Log{Level: "info", Format: "console"},
	}
}

// Load reads path over the defaults. The format follows the extension:
// .toml, otherwise YAML.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := Default()
	if isTOML(path) {
		if _, err := toml.Decode(string(b), c); err != nil {
			return nil, fmt.Errorf("decode TOML: %w", err)
		}
	} else if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("decode YAML: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

func Save(path string, c *Config) error {
	var b []byte
	if isTOML(path) {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(c); err != nil {
			return err
		}
		b = buf.Bytes()
	} else {
		var err error
		if b, err = yaml.Marshal(c); err != nil {
			return err
		}
	}
	return os.WriteFile(path, b, 0644)
}

func isTOML(path string) bool { return strings.EqualFold(filepath.Ext(path), ".toml") }

// Validate rejects values the core cannot run with.
func (c *Config) Validate() error {
	var errs []error
	switch c.Camera.Backend {
	case "sim":
	case "file":
		if c.Camera.File == "" {
			errs = append(errs, errors.New("camera.file is required for the file backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("camera.backend %q is not sim or file", c.Camera.Backend))
	}
	if c.Camera.FPS <= 0 || c.Camera.FPS > 240 {
		errs = append(errs, fmt.Errorf("camera.fps %d out of range", c.Camera.FPS))
	}
	for mode, f := range c.Zoom.Ceilings {
		switch mode {
		case "photo", "video", "portrait":
		default:
			errs = append(errs, fmt.Errorf("zoom.ceilings: unknown mode %q", mode))
		}
		if f < 1 {
			errs = append(errs, fmt.Errorf("zoom.ceilings.%s must be at least 1", mode))
		}
	}
	if c.LUT.Intensity < 0 || c.LUT.Intensity > 1 {
		errs = append(errs, fmt.Errorf("lut.intensity %.2f outside [0,1]", c.LUT.Intensity))
	}
	switch c.Flash.Driver {
	case "spi", "console", "none", "":
	default:
		errs = append(errs, fmt.Errorf("flash.driver %q is not spi, console or none", c.Flash.Driver))
	}
	switch c.Log.Format {
	case "console", "json", "":
	default:
		errs = append(errs, fmt.Errorf("log.format %q is not console or json", c.Log.Format))
	}
	return errors.Join(errs...)
}
