// Package vectorutils is the vector index utility package
package vectorutils

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/foldermate/foldermate/pkg/vector"
	qdrantvec "github.com/foldermate/foldermate/pkg/vector/qdrant"
	"github.com/foldermate/foldermate/pkg/vector/sqlitevec"
)

type NewDriverOpts struct {
	ProviderType string

	// DBPath is the sqlite file for the sqlitevec provider.
	DBPath string

	// TargetURL is the server URL for remote providers.
	TargetURL string

	Dimensions uint
	Logger     *zap.Logger
}

func NewDriver(ctx context.Context, o *NewDriverOpts) (vector.Driver, error) {
	switch o.ProviderType {
	case "sqlitevec":
		return sqlitevec.NewDriver(sqlitevec.Config{
			DBPath:     o.DBPath,
			Dimensions: o.Dimensions,
		}, o.Logger)
	case "qdrant":
		return qdrantvec.NewDriver(ctx, qdrantvec.Config{
			URL:        o.TargetURL,
			Dimensions: o.Dimensions,
		}, o.Logger)
	default:
		return nil, fmt.Errorf("unsupported vector store provider: %s", o.ProviderType)
	}
}
