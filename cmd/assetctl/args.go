package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tendant/simple-asset/pkg/simpleasset"
)

type cliArgs struct {
	positional []string
	flags      map[string]string
}

func parseArgs(args []string) cliArgs {
	parsed := cliArgs{flags: make(map[string]string)}
	for _, arg := range args {
		if key, value, ok := parseFlag(arg); ok {
			parsed.flags[key] = value
			continue
		}
		parsed.positional = append(parsed.positional, arg)
	}
	return parsed
}

// parseFlag splits --key=value. A bare --key is "true".
func parseFlag(arg string) (string, string, bool) {
	rest, ok := strings.CutPrefix(arg, "--")
	if !ok || rest == "" {
		return "", "", false
	}
	key, value, found := strings.Cut(rest, "=")
	if !found {
		value = "true"
	}
	return key, value, true
}

func (a cliArgs) flag(key string) string { return a.flags[key] }

func (a cliArgs) bool(key string) bool {
	v, err := strconv.ParseBool(a.flags[key])
	return err == nil && v
}

func (a cliArgs) int(key string, def int) (int, error) {
	raw, ok := a.flags[key]
	if !ok {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("--%s must be a non-negative integer", key)
	}
	return n, nil
}

// arg returns the single positional argument a command needs.
func (a cliArgs) arg(what string) (string, error) {
	if len(a.positional) != 1 {
		return "", fmt.Errorf("expected exactly one %s argument", what)
	}
	return a.positional[0], nil
}

func (a cliArgs) listRequest() (simpleasset.ListAssetsRequest, error) {
	limit, err := a.int("limit", 100)
	if err != nil {
		return simpleasset.ListAssetsRequest{}, err
	}
	offset, err := a.int("offset", 0)
	if err != nil {
		return simpleasset.ListAssetsRequest{}, err
	}
	return simpleasset.ListAssetsRequest{
		MediaTypePrefix: a.flag("media-prefix"),
		Signature:       a.flag("signature"),
		Category:        a.flag("category"),
		IncludeDeleted:  a.bool("include-deleted"),
		Limit:           limit,
		Offset:          offset,
	}, nil
}
