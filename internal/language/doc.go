// Package language normalises stream language tags so the classifier can
// compare "en", "eng", "English" and "en-US" against one target code.
package language
