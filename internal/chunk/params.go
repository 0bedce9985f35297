package chunk

import "strings"

// SplitParams splits a header value such as
//
//	form-data; name="field"; filename="C:\dir\a.txt"
//
// into its leading token and a map of lower-cased parameter names to values.
// Parameters are separated by ';' outside of quotes and split on the first
// '='. Surrounding quotes are removed; backslashes are kept verbatim so that
// Windows paths survive.
func SplitParams(v string) (string, map[string]string) {
	params := make(map[string]string)

	sections := splitQuoted(v, ';')
	token := ""
	for i, sec := range sections {
		sec = strings.TrimSpace(sec)
		if sec == "" {
			continue
		}

		key, value, ok := strings.Cut(sec, "=")
		if !ok {
			if i == 0 {
				token = sec
			}
			continue
		}

		key = strings.ToLower(strings.TrimSpace(key))
		if key == "" {
			continue
		}
		params[key] = unquote(strings.TrimSpace(value))
	}

	return token, params
}

func splitQuoted(s string, sep byte) []string {
	var (
		sections []string
		quoted   bool
		start    int
	)
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"':
			if i == 0 || s[i-1] != '\\' {
				quoted = !quoted
			}
		case sep:
			if !quoted {
				sections = append(sections, s[start:i])
				start = i + 1
			}
		}
	}

	return append(sections, s[start:])
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	} else {
		s = strings.Trim(s, `"`)
	}

	return strings.ReplaceAll(s, `\"`, `"`)
}
