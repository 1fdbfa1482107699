// Package confloader loads configuration with koanf.
//
// Sources, later ones overriding earlier ones:
//
//  1. Values already present in the target struct (defaults)
//  2. YAML configuration file
//  3. .env file (KEY=value lines, read with godotenv)
//  4. Process environment variables
//
// Environment keys use a prefix and a double underscore between nesting
// levels, so that single underscores survive inside key names:
//
//	TUAMAIL_STORAGE__DATA_DIR=/srv/tuamail  ->  storage.data_dir
//
// Watcher notifies callbacks when a watched file is written, which the
// server uses to apply log level changes without a restart.
package confloader
