// Package scenario runs scripted page view sessions without a browser shell.
//
// A scenario file describes a document, the display, and a list of host
// interactions (resizes, navigations, zooms, deferred actions). The runner
// drives a real pageview.Coordinator over an in-memory document layout and
// recording tile and compositor backends, then checks the emitted events and
// final geometry against the scenario's expectations.
//
// Architecture:
//
//	┌──────────────────────────────────────┐
//	│             Scenario Runner          │
//	│  - Steps pumped on the content loop  │
//	│  - Event expectations (globs)        │
//	│  - Summary artifacts                 │
//	└──────────────────┬───────────────────┘
//	                   │
//	                   ▼
//	        ┌──────────────────────┐
//	        │ pageview.Coordinator │
//	        │ document.Layout      │
//	        └──────────────────────┘
//
// Example scenario:
//
//	name: rotate after zoom
//	screen: {size: {width: 1024, height: 1024}, device_pixel_ratio: 2}
//	document:
//	  root: {name: body, rect: {width: 980, height: 2000}}
//	steps:
//	  - {action: resize, size: {width: 320, height: 480}}
//	  - {action: load, size: {width: 980, height: 3000}}
//	  - {action: zoom, scale: 1, anchor: {x: 490, y: 735}}
//	  - {action: resize, size: {width: 480, height: 320}}
//	expectations:
//	  - {event: geometry_final, min: 1, max: 1}
//	  - {event: "*_changed", min: 1}
//	final: {load_state: finished, scale: 1}
//
// Example usage:
//
//	cfg, _ := scenario.LoadFile("rotate.yaml")
//	runner, _ := scenario.NewRunner(cfg)
//	summary, err := runner.Run(ctx)
package scenario
