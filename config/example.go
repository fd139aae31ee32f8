package config

var ExampleYaml = `
endpoints:
  mqtt:
    broker: tcp://127.0.0.1:1883
  api: :8723
cast:
  room: Google
  rooms:
    Kitchen speaker: Kitchen
  poll: 10s
  models: [Marshall Stanmore]
voice:
  device: Kitchen speaker
  language: fr
  volume: 50
  app: Spotify
datalogger:
  path: /tmp/castbridge.db
`

var ExampleConfig *Config

func init() {
	var err error
	ExampleConfig, err = OpenRaw([]byte(ExampleYaml))
	if err != nil {
		panic(err)
	}
}
