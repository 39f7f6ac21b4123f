// Package cli provides command-line interface setup and configuration
// for the cardtrans application. It handles flag parsing, command
// creation, configuration management using cobra and viper, and builds the
// logrus logger used by the rest of the program.
package cli
