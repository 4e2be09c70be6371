package session

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
)

const (
	bqPacketBufferSize  = 1000
	bqRowCountThreshold = 500
	bqWriteTimeMillis   = 500
)

// eventRow is one append to the session-events table: BigQuery's streaming
// insert API has no in-place update, so Insert/Update both append an
// event row keyed by SessionID and EventType; the session's current state
// is the last-write-wins fold over rows with that SessionID, same as the
// teacher's CDR writer appends one row per accounting packet rather than
// mutating a prior one.
type eventRow struct {
	SessionID        string
	EventType        string // "start", "interim", "stop"
	Username         string
	NASIP            string
	NASPort          uint32
	Timestamp        time.Time
	InputOctets      uint64
	OutputOctets     uint64
	InputPackets     uint64
	OutputPackets    uint64
	SessionTime      uint64
	TerminationCause string
}

// Save implements bigquery.ValueSaver.
func (e eventRow) Save() (map[string]bigquery.Value, string, error) {
	return map[string]bigquery.Value{
		"session_id":        e.SessionID,
		"event_type":        e.EventType,
		"username":          e.Username,
		"nas_ip":            e.NASIP,
		"nas_port":          e.NASPort,
		"timestamp":         e.Timestamp,
		"input_octets":      e.InputOctets,
		"output_octets":     e.OutputOctets,
		"input_packets":     e.InputPackets,
		"output_packets":    e.OutputPackets,
		"session_time":      e.SessionTime,
		"termination_cause": e.TerminationCause,
	}, "", nil
}

// BigQueryRepository streams session lifecycle events into a BigQuery
// table through a buffered channel and a periodic flush, following
// cdrwriter/bigquery_writer.go's eventLoop/ticker/batch-threshold design.
// Failures during the configured glitch window are retried on the next
// tick by keeping the batch; failures past the glitch window are logged
// and the batch is dropped — this repository does not carry the teacher's
// on-disk backup-file fallback, since session events (unlike CDRs) are
// also recoverable from the NAS's own accounting retransmits.
type BigQueryRepository struct {
	table      *bigquery.Table
	glitchTime time.Duration

	rowChan  chan eventRow
	doneChan chan struct{}

	onError func(error)
}

// NewBigQueryRepository opens a client against projectID and wires it to
// dataset.table, following bigquery_writer.go's NewBigQueryCDRWriter
// credential-resolution shape, simplified to accept an already-resolved
// project ID; credentials come from the BigQuery client library's own
// default discovery.
func NewBigQueryRepository(ctx context.Context, projectID, dataset, table string, glitchSeconds int, onError func(error)) (*BigQueryRepository, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("session: could not create bigquery client: %w", err)
	}
	tbl := client.Dataset(dataset).Table(table)

	if onError == nil {
		onError = func(error) {}
	}

	r := &BigQueryRepository{
		table:      tbl,
		glitchTime: time.Duration(glitchSeconds) * time.Second,
		rowChan:    make(chan eventRow, bqPacketBufferSize),
		doneChan:   make(chan struct{}),
		onError:    onError,
	}
	go r.eventLoop()
	return r, nil
}

func (r *BigQueryRepository) Insert(s Session) error {
	r.rowChan <- eventRow{
		SessionID: s.SessionID,
		EventType: "start",
		Username:  s.Username,
		NASIP:     s.NASIP,
		NASPort:   s.NASPort,
		Timestamp: s.StartTime,
	}
	return nil
}

func (r *BigQueryRepository) Update(sessionID string, m Mutation) error {
	row := eventRow{SessionID: sessionID, EventType: "interim", Timestamp: time.Now()}
	if m.InputOctets != nil {
		row.InputOctets = *m.InputOctets
	}
	if m.OutputOctets != nil {
		row.OutputOctets = *m.OutputOctets
	}
	if m.InputPackets != nil {
		row.InputPackets = *m.InputPackets
	}
	if m.OutputPackets != nil {
		row.OutputPackets = *m.OutputPackets
	}
	if m.SessionTime != nil {
		row.SessionTime = *m.SessionTime
	}
	if m.StopTime != nil {
		row.EventType = "stop"
		row.Timestamp = *m.StopTime
	}
	if m.TerminationCause != nil {
		row.TerminationCause = *m.TerminationCause
	}
	r.rowChan <- row
	return nil
}

// Close drains the buffer and stops the event loop; callers should call
// this during graceful shutdown.
func (r *BigQueryRepository) Close() {
	close(r.rowChan)
	<-r.doneChan
}

func (r *BigQueryRepository) eventLoop() {
	var batch []eventRow
	var lastWritten = time.Now()
	var lastError time.Time

	ticker := time.NewTicker(bqWriteTimeMillis * time.Millisecond)
	defer ticker.Stop()

loop:
	for {
		select {
		case <-ticker.C:
			// fall through to the flush check below
		case row, ok := <-r.rowChan:
			if !ok {
				break loop
			}
			batch = append(batch, row)
		}

		if len(batch) == 0 {
			continue
		}
		if len(batch) <= bqRowCountThreshold && time.Since(lastWritten).Milliseconds() < bqWriteTimeMillis {
			continue
		}

		if err := r.flush(batch); err != nil {
			r.onError(err)
			// lastError marks the start of the current run of failures.
			if lastError.IsZero() {
				lastError = time.Now()
			}
			if time.Since(lastError) > r.glitchTime {
				// Past the glitch window: drop this batch rather than
				// grow unboundedly.
				batch = nil
			}
		} else {
			batch = nil
			lastError = time.Time{}
		}
		lastWritten = time.Now()
	}

	if len(batch) > 0 {
		if err := r.flush(batch); err != nil {
			r.onError(err)
		}
	}
	close(r.doneChan)
}

func (r *BigQueryRepository) flush(batch []eventRow) error {
	savers := make([]bigquery.ValueSaver, len(batch))
	for i, row := range batch {
		savers[i] = row
	}
	return r.table.Inserter().Put(context.Background(), savers)
}
