// Package media delegates container and codec handling to ffmpeg. It turns
// any input ffmpeg can open into the 16 kHz mono 16-bit WAV the whisper
// engine reads.
package media
