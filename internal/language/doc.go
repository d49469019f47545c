// Package language maps the language codes containers carry on their audio
// streams to ISO 639-1 codes and readable names.
package language
