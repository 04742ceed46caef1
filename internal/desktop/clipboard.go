package desktop

import "github.com/atotto/clipboard"

// SystemClipboard implements Clipboard using the atotto/clipboard package.
type SystemClipboard struct{}

func (SystemClipboard) Read() (string, error) {
	return clipboard.ReadAll()
}

func (SystemClipboard) Write(text string) error {
	return clipboard.WriteAll(text)
}
