package config

import (
	"io"
	"os"
	"path"
	"time"

	"gopkg.in/yaml.v2"
)

type EndpointsConf struct {
	Mqtt struct {
		Broker string
	}
	Api   string
	Redis string
}

// Duration parses "10s"-style yaml values.
type Duration time.Duration

func (self *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	value, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*self = Duration(value)
	return nil
}

type CastConf struct {
	Room    string
	Rooms   map[string]string
	Poll    Duration
	Models  []string
	Verbose bool
}

type VoiceConf struct {
	Device   string
	Language string
	Volume   int
	App      string
	Minport  int
	Maxport  int
	Chunk    int
	Dir      string
}

type DataloggerConf struct {
	Path string
}

// Configuration structure
type Config struct {
	// yaml fields
	Endpoints  EndpointsConf
	Cast       CastConf
	Voice      VoiceConf
	Datalogger DataloggerConf
}

// Open configuration from disk.
func Open() (*Config, error) {
	file, err := os.Open(ConfigPath("castbridge.yml"))
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return OpenReader(file)
}

// Open configuration from a reader.
func OpenReader(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return OpenRaw(data)
}

// Open configuration from []byte.
func OpenRaw(data []byte) (*Config, error) {
	self := &Config{}
	err := yaml.Unmarshal(data, self)
	if err != nil {
		return nil, err
	}

	// documented defaults
	if self.Endpoints.Api == "" {
		self.Endpoints.Api = ":8723"
	}
	if self.Cast.Room == "" {
		self.Cast.Room = "Google"
	}
	if self.Cast.Poll == 0 {
		self.Cast.Poll = Duration(10 * time.Second)
	}
	if self.Voice.Language == "" {
		self.Voice.Language = "en"
	}
	if self.Voice.Volume == 0 {
		self.Voice.Volume = 50
	}
	if self.Voice.Minport == 0 {
		self.Voice.Minport = 10001
	}
	if self.Voice.Maxport == 0 {
		self.Voice.Maxport = 19999
	}
	if self.Voice.Chunk == 0 {
		self.Voice.Chunk = 16 * 1024
	}
	if self.Voice.Dir == "" {
		self.Voice.Dir = ConfigPath("messages")
	}

	return self, nil
}

// Room for a device, by friendly name override or the default room.
func (self *Config) DeviceRoom(name string) string {
	if room, ok := self.Cast.Rooms[name]; ok {
		return room
	}
	return self.Cast.Room
}

// helpers

// Resolve a configuration file under .config/castbridge
func ConfigPath(p string) string {
	config := os.Getenv("XDG_CONFIG_HOME")
	if config == "" {
		config = path.Join(os.Getenv("HOME"), ".config")
	}
	return path.Join(config, "castbridge", p)
}
