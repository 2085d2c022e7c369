// Package ui provides the color themes shared by the CLI output and the
// watch dashboard.
package ui
