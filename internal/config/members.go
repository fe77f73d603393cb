package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/ericfisherdev/reviewnudge/internal/domain/model"
)

// memberEntry is one roster entry as written in the members file.
type memberEntry struct {
	Handle    string `mapstructure:"handle"`
	MentionID string `mapstructure:"mention_id"`
}

// LoadMembers reads the tracked-member roster from a JSON or YAML file (chosen by
// extension) under the "members" key. Blank handles are rejected and case-insensitive
// duplicates are dropped, keeping the first occurrence.
func LoadMembers(path string) ([]model.TrackedMember, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading members file %s: %w", path, err)
	}

	var entries []memberEntry
	if err := v.UnmarshalKey("members", &entries); err != nil {
		return nil, fmt.Errorf("parsing members file %s: %w", path, err)
	}

	seen := make(map[string]struct{}, len(entries))
	members := make([]model.TrackedMember, 0, len(entries))
	for i, e := range entries {
		handle := strings.TrimPrefix(strings.TrimSpace(e.Handle), "@")
		if handle == "" {
			return nil, fmt.Errorf("members file %s: entry %d has a blank handle", path, i)
		}
		key := strings.ToLower(handle)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		members = append(members, model.TrackedMember{
			Handle:    handle,
			MentionID: strings.TrimSpace(e.MentionID),
		})
	}

	if len(members) == 0 {
		return nil, fmt.Errorf("members file %s lists no members", path)
	}

	return members, nil
}
