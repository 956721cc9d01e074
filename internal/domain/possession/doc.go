// Package possession reacts to the client's battery and microphone
// readings with a canned line and a screen effect.
package possession
