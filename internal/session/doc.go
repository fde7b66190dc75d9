// Package session drives the interactive menu: it loads the model once, then
// alternates between transcribing user files and recording short clips until
// the user exits.
//
// The controller only talks to its collaborators through small interfaces
// (ModelLoader, Recorder, Transcriber, Console) so every path through the
// loop can be exercised with scripted input and stubs.
package session
