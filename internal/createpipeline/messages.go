package createpipeline

import "os"

// resolveMessage reads step 2's initial/resume message: a literal string
// wins outright, otherwise a path is read verbatim (no trimming - trailing
// newlines in a message file are the caller's choice).
func resolveMessage(m MessageInput) (string, error) {
	if m.Literal != "" {
		return m.Literal, nil
	}
	if m.Path == "" {
		return "", nil
	}
	data, err := os.ReadFile(m.Path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
