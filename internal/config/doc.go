// Package config loads and watches Quill's settings.
//
// Settings are layered, lowest precedence first:
//
//  1. Built-in defaults (Default)
//  2. A TOML or YAML file, chosen by extension
//  3. QUILL_* environment variables
//
// A Watcher reloads the file when it changes on disk and notifies
// registered observers with the old and new values.
//
// Example file:
//
//	[editor]
//	tab_size = 4
//	use_spaces = true
//	auto_save = true
//	auto_save_delay = "2s"
//
//	[history]
//	max_undo_entries = 500
//	coalesce_idle = "1s"
//
//	[keybindings]
//	"ctrl+s" = "save"
package config
