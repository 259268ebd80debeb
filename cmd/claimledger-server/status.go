package main

import (
	"context"
	"time"

	"github.com/yndnr/claimledger-go/internal/core/service"
	"github.com/yndnr/claimledger-go/internal/infra/buildinfo"
	"github.com/yndnr/claimledger-go/internal/server/clusterserver"
	"github.com/yndnr/claimledger-go/internal/server/config"
)

// nodeStatus is the admin socket's status reply.
type nodeStatus struct {
	Version  string                `json:"version"`
	Uptime   string                `json:"uptime"`
	Storage  string                `json:"storage"`
	Writable bool                  `json:"writable"`
	Registry *service.RegistryInfo `json:"registry"`
	Cluster  *clusterserver.Status `json:"cluster,omitempty"`
}

// statusReporter returns the admin socket's status action.
func statusReporter(started time.Time, cfg *config.ServerConfig, registry *service.RegistryService,
	query *service.QueryService, cluster *clusterserver.Server) func(context.Context) (any, error) {
	return func(ctx context.Context) (any, error) {
		info, err := query.RegistryInfo(ctx)
		if err != nil {
			return nil, err
		}
		st := &nodeStatus{
			Version:  buildinfo.Get().Version,
			Uptime:   time.Since(started).Round(time.Second).String(),
			Storage:  cfg.Storage.Engine,
			Writable: registry.IsWritable(),
			Registry: info,
		}
		if cluster != nil {
			if cs, err := cluster.Status(); err == nil {
				st.Cluster = cs
			}
		}
		return st, nil
	}
}
