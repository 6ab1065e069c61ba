package paramstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/mattjoyce/imagerelay/internal/config"
)

// Parameter names under the configured prefix.
const (
	ParamChannelSecret      = "line-channel-secret"
	ParamChannelAccessToken = "line-channel-access-token"
	ParamStoreToken         = "store-token"
)

// ResolveSecrets fills secrets left empty by file and environment
// configuration from "<prefix>/<name>" parameters. Secrets that are already
// set are never overwritten.
func ResolveSecrets(ctx context.Context, g Getter, prefix string, cfg *config.Config) error {
	prefix = strings.TrimRight(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return fmt.Errorf("paramstore: prefix must not be empty")
	}

	targets := []struct {
		name string
		dst  *string
	}{
		{ParamChannelSecret, &cfg.Line.ChannelSecret},
		{ParamChannelAccessToken, &cfg.Line.ChannelAccessToken},
		{ParamStoreToken, &cfg.Store.Token},
	}

	for _, t := range targets {
		if *t.dst != "" {
			continue
		}
		v, err := g.GetParameter(ctx, prefix+"/"+t.name)
		if err != nil {
			return err
		}
		*t.dst = strings.TrimSpace(v)
	}
	return nil
}
