// Package sanitize provides functions for sanitizing names for safe filesystem use
// and for masking secrets in recorded command lines.
package sanitize

import "strings"

// Mask replaces a secret value in recorded arguments.
const Mask = "********"

// Name converts job and container names to filesystem-safe names.
// Docker container names can only contain [a-zA-Z0-9][a-zA-Z0-9_.-]* plus "/"
// as separator; job names are user-chosen, so path separators and spaces are
// replaced as well.
func Name(name string) string {
	return strings.NewReplacer("/", "_", "\\", "_", " ", "_").Replace(name)
}

// valueShorts are the pg_restore short options that take a value.
const valueShorts = "dfFPhIjpwnStTLU"

// valueLongs are the pg_restore long options that take a value.
var valueLongs = map[string]bool{
	"dbname": true, "file": true, "format": true, "function": true,
	"host": true, "index": true, "jobs": true, "port": true,
	"no-password": true, "schema": true, "superuser": true, "table": true,
	"trigger": true, "use-list": true, "username": true, "role": true,
	"section": true, "container": true,
}

// MaskArgs returns a copy of a pg_restore argument vector with the password
// hidden. Arguments are walked the way the driver parses them, so the value
// of -w is found in clusters such as "-vwVALUE", "-1w VALUE" or "-Ow=VALUE",
// and in "--no-password VALUE" or "--no-password=VALUE".
func MaskArgs(args []string) []string {
	masked := make([]string, len(args))
	copy(masked, args)

	for i := 0; i < len(masked); i++ {
		arg := masked[i]
		switch {
		case arg == "--":
			return masked
		case strings.HasPrefix(arg, "--"):
			name, _, inline := strings.Cut(arg[2:], "=")
			if !valueLongs[name] || inline {
				if name == "no-password" && inline {
					masked[i] = "--no-password=" + Mask
				}
				continue
			}
			if i+1 < len(masked) {
				if name == "no-password" {
					masked[i+1] = Mask
				}
				i++
			}
		case len(arg) > 1 && arg[0] == '-':
			if maskCluster(masked, i) {
				i++
			}
		}
	}
	return masked
}

// maskCluster masks the password inside the short option cluster at
// args[i]. It reports whether the cluster consumed the next argument.
func maskCluster(args []string, i int) bool {
	cluster := args[i][1:]
	for j := 0; j < len(cluster); j++ {
		c := cluster[j]
		rest := cluster[j+1:]
		if !strings.ContainsRune(valueShorts, rune(c)) {
			if strings.HasPrefix(rest, "=") {
				return false
			}
			continue
		}
		if rest != "" {
			if c == 'w' {
				prefix := "-" + cluster[:j+1]
				if strings.HasPrefix(rest, "=") {
					prefix += "="
				}
				args[i] = prefix + Mask
			}
			return false
		}
		if i+1 >= len(args) {
			return false
		}
		if c == 'w' {
			args[i+1] = Mask
		}
		return true
	}
	return false
}
