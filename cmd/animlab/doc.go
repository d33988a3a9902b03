// Command animlab is the operator CLI for the animlab scene service.
//
// Scene, stats, audio, and render commands work directly against the
// configured store and directories, so they are usable with or without the
// service running. `animlab serve` runs the service in the foreground.
package main
