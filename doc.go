// The castbridge home automation bridge for Google Cast audio speakers
//
// Features
//
// - Automatic discovery of Google Cast audio devices (zeroconf)
//
// - Video devices (Chromecast, Google TV) are filtered out
//
// - Speakers appear as bus entities: status, volume, playing, source
//
// - Volume control including mute/unmute, play/pause/rewind/seek
//
// - Voice notifications: text to speech cast to any speaker or audio
// group, with the previous volume and app restored afterwards
//
// - Distributed message system (MQTT, run services over a network)
//
// - Lightweight, small memory footprint (runs on the Raspberry Pi)
//
// Services
//
// - cast: discovery, device control and voice notifications
//
// - api: REST API to devices, rooms and notifications
//
// - datalogger: event history to sqlite
package castbridge
