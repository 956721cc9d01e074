// Package spirits answers a named visitor with a personalized omen.
package spirits
