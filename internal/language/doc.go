// Package language normalizes language codes and produces the display names
// the translation pipeline embeds in provider prompts.
package language
