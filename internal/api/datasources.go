package api

import (
	"context"
	"fmt"
	"time"
)

// DataSource is a database the bots can query.
type DataSource struct {
	ID        int64          `json:"id"`
	Name      string         `json:"name"`
	Engine    string         `json:"engine"`
	Host      string         `json:"host,omitempty"`
	Port      int            `json:"port,omitempty"`
	Database  string         `json:"database,omitempty"`
	Username  string         `json:"username,omitempty"`
	Options   map[string]any `json:"options,omitempty"`
	CreatedAt *time.Time     `json:"created_at,omitempty"`
}

// DataSourceInput creates a data source. Password is write-only.
type DataSourceInput struct {
	Name     string         `json:"name" validate:"required"`
	Engine   string         `json:"engine" validate:"required,oneof=postgresql mysql sqlite mssql"`
	Host     string         `json:"host,omitempty"`
	Port     int            `json:"port,omitempty" validate:"gte=0,lte=65535"`
	Database string         `json:"database" validate:"required"`
	Username string         `json:"username,omitempty"`
	Password string         `json:"password,omitempty"`
	Options  map[string]any `json:"options,omitempty"`
}

// ConnectionTest is the outcome of a data source connection test.
type ConnectionTest struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ListDataSources returns the organization's data sources.
func (c *Client) ListDataSources(ctx context.Context) ([]DataSource, error) {
	var p page[DataSource]
	if err := c.get(ctx, "/api/datasources/", nil, &p); err != nil {
		return nil, err
	}
	return p.items(), nil
}

// GetDataSource returns one data source.
func (c *Client) GetDataSource(ctx context.Context, id int64) (*DataSource, error) {
	var ds DataSource
	if err := c.get(ctx, dataSourcePath(id), nil, &ds); err != nil {
		return nil, err
	}
	return &ds, nil
}

// CreateDataSource registers a data source.
func (c *Client) CreateDataSource(ctx context.Context, in DataSourceInput) (*DataSource, error) {
	var ds DataSource
	if err := c.post(ctx, "/api/datasources/", in, &ds); err != nil {
		return nil, err
	}
	return &ds, nil
}

// DeleteDataSource removes a data source.
func (c *Client) DeleteDataSource(ctx context.Context, id int64) error {
	return c.del(ctx, dataSourcePath(id))
}

// TestDataSourceConnection asks the backend to connect to the data source.
// A failed connection is reported in the result, not as an error.
func (c *Client) TestDataSourceConnection(ctx context.Context, id int64) (*ConnectionTest, error) {
	var res ConnectionTest
	if err := c.post(ctx, dataSourcePath(id)+"test-connection/", nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func dataSourcePath(id int64) string {
	return fmt.Sprintf("/api/datasources/%d/", id)
}
