package stinfluxdb

import (
	"context"
	"fmt"
	"strconv"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/open-control-systems/ping-monitor/components/ping"
)

const resultMeasurement = "ping_result"

// ResultStore stores probe results in influxDB.
//
// Remarks:
//   - Each result is a point of the "ping_result" measurement, tagged with device_id,
//     with "status" and, on success, "rtt_ms" fields.
//
// References:
//   - https://docs.influxdata.com/influxdb/cloud/api-guide/client-libraries/go/
type ResultStore struct {
	params      DBParams
	dbClient    influxdb2.Client
	writeClient api.WriteAPIBlocking
	queryClient api.QueryAPI
	deleteAPI   api.DeleteAPI
}

// NewResultStore is an initialization of ResultStore.
//
// Parameters:
//   - params - various influxDB configuration parameters.
func NewResultStore(params DBParams) *ResultStore {
	dbClient := influxdb2.NewClient(params.URL, params.Token)

	return &ResultStore{
		params:      params,
		dbClient:    dbClient,
		writeClient: dbClient.WriteAPIBlocking(params.Org, params.Bucket),
		queryClient: dbClient.QueryAPI(params.Org),
		deleteAPI:   dbClient.DeleteAPI(),
	}
}

// Append writes the result as a single point.
func (s *ResultStore) Append(ctx context.Context, result ping.Result) error {
	fields := map[string]interface{}{
		"status": string(result.Status),
	}

	if result.RTT != nil {
		fields["rtt_ms"] = float64(*result.RTT) / float64(time.Millisecond)
	}

	point := influxdb2.NewPoint(resultMeasurement,
		map[string]string{"device_id": result.DeviceID},
		fields,
		result.Time)

	if err := s.writeClient.WritePoint(ctx, point); err != nil {
		return fmt.Errorf("influxdb-result-store: failed to write to DB: %w", err)
	}

	return nil
}

// List returns up to limit most recent results for the device, newest first.
func (s *ResultStore) List(ctx context.Context, deviceID string, limit int) ([]ping.Result, error) {
	query := fmt.Sprintf(`
	from(bucket: %s)
	  |> range(start: 0)
	  |> filter(fn: (r) => r["_measurement"] == %s and r["device_id"] == %s)
	  |> pivot(rowKey: ["_time"], columnKey: ["_field"], valueColumn: "_value")
	  |> group()
	  |> sort(columns: ["_time"], desc: true)`,
		strconv.Quote(s.params.Bucket),
		strconv.Quote(resultMeasurement),
		strconv.Quote(deviceID))

	if limit > 0 {
		query += fmt.Sprintf("\n\t  |> limit(n: %d)", limit)
	}

	result, err := s.queryClient.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("influxdb-result-store: failed to query: %w", err)
	}
	defer result.Close() //nolint:errcheck

	var results []ping.Result

	for result.Next() {
		record := result.Record()

		st, ok := record.ValueByKey("status").(string)
		if !ok {
			return nil, fmt.Errorf("influxdb-result-store: invalid status field: %v",
				record.ValueByKey("status"))
		}

		status, err := ping.ParseStatus(st)
		if err != nil {
			return nil, fmt.Errorf("influxdb-result-store: %w", err)
		}

		item := ping.Result{
			Time:     record.Time().UTC(),
			DeviceID: deviceID,
			Status:   status,
		}

		if ms, ok := record.ValueByKey("rtt_ms").(float64); ok {
			rtt := time.Duration(ms * float64(time.Millisecond))
			item.RTT = &rtt
		}

		results = append(results, item)
	}

	if result.Err() != nil {
		return nil, fmt.Errorf("influxdb-result-store: query error: %w", result.Err())
	}

	return results, nil
}

// DeleteDevice removes all points of the device.
func (s *ResultStore) DeleteDevice(ctx context.Context, deviceID string) error {
	predicate := fmt.Sprintf(`_measurement=%s AND device_id=%s`,
		strconv.Quote(resultMeasurement), strconv.Quote(deviceID))

	if err := s.deleteAPI.DeleteWithName(ctx, s.params.Org, s.params.Bucket,
		time.Unix(0, 0).UTC(), time.Now().UTC().Add(time.Hour), predicate); err != nil {
		return fmt.Errorf("influxdb-result-store: failed to delete device_id=%s: %w",
			deviceID, err)
	}

	return nil
}

// Close stops writing data to the DB.
func (s *ResultStore) Close() error {
	s.dbClient.Close()

	return nil
}
