//go:build !darwin

package eventcatcher

// Sleep detection is only available on darwin.
func sleeper(listen chan bool) {}
