package memdb

import "context"

// StaticLocator implements dbclient.ClusterLocator over a fixed endpoint
// list, standing in for the real cluster-membership lookup a production
// ClusterLocator would perform against the database under test.
type StaticLocator []string

func (l StaticLocator) TesterEndpoints(ctx context.Context) ([]string, error) {
	return l, nil
}
