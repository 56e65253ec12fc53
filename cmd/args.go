package cmd

import "strings"

// shortAliases maps the legacy single dash multi letter options onto their long flags.
// pflag would read "-ri" as the shorthand cluster "-r -i".
var shortAliases = map[string]string{
	"-ri": "--resolver_ip",
	"-ph": "--proxy_host",
}

// normalizeArgs rewrites the legacy aliases, including their "-ri=value" form.
// Everything after "--" is left alone.
func normalizeArgs(args []string) []string {
	out := make([]string, 0, len(args))
	for i, arg := range args {
		if arg == "--" {
			return append(out, args[i:]...)
		}
		name, value, hasValue := strings.Cut(arg, "=")
		if long, ok := shortAliases[name]; ok {
			if hasValue {
				arg = long + "=" + value
			} else {
				arg = long
			}
		}
		out = append(out, arg)
	}
	return out
}
