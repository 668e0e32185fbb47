package wire

// ParseCookies parses a Cookie header value such as "a=1; b=2". Segments
// lacking '=' are skipped silently. Names drop trailing whitespace; values
// drop surrounding whitespace, and one layer of double quotes is removed
// without unescaping the interior. A name repeated later overwrites the
// earlier value.
func ParseCookies(s string) map[string]string {
	out := make(map[string]string)
	n := len(s)
	i := 0

	for i < n {
		for i < n && (s[i] == ' ' || s[i] == '\t' || s[i] == ';') {
			i++
		}
		if i >= n {
			break
		}

		nameStart := i
		for i < n && s[i] != '=' && s[i] != ';' {
			i++
		}
		if i >= n || s[i] != '=' {
			// No '=', skip this malformed segment.
			for i < n && s[i] != ';' {
				i++
			}
			continue
		}

		nameEnd := i
		for nameEnd > nameStart && (s[nameEnd-1] == ' ' || s[nameEnd-1] == '\t') {
			nameEnd--
		}

		i++ // '='
		for i < n && (s[i] == ' ' || s[i] == '\t') {
			i++
		}

		var val string
		if i < n && s[i] == '"' {
			i++
			valStart := i
			for i < n && s[i] != '"' {
				i++
			}
			val = s[valStart:i]
			if i < n {
				i++ // closing quote
			}
		} else {
			valStart := i
			for i < n && s[i] != ';' {
				i++
			}
			valEnd := i
			for valEnd > valStart && (s[valEnd-1] == ' ' || s[valEnd-1] == '\t') {
				valEnd--
			}
			val = s[valStart:valEnd]
		}

		if nameEnd > nameStart {
			out[s[nameStart:nameEnd]] = val
		}
	}

	return out
}
