package session

import (
	"context"
	"fmt"
	"time"

	"github.com/tinoosan/ftsd/internal/data"
	"github.com/tinoosan/ftsd/internal/metrics"
	"github.com/tinoosan/ftsd/internal/report"
	"github.com/tinoosan/ftsd/internal/transfer"
)

// run is the session's single transfer worker. At most one instance executes
// per session at any time; Start and Resume enforce that through the
// workerActive guard. A panic here is contained and converted into the
// session's Failed state so one broken transfer can never take the process
// down with it.
func (s *Session) run(resume bool) {
	defer s.workerDone()
	defer func() {
		if r := recover(); r != nil {
			metrics.WorkerPanics.Inc()
			s.log.Error("transfer worker panic", "remote_instance", s.remoteInstanceID, "panic", r)
			s.fail(data.NewTransferError(data.CodeUnexpectedFault, fmt.Errorf("worker panic: %v", r)))
		}
	}()

	ctx := context.Background()
	var err error
	if resume {
		err = s.engine.ResumeFrom(ctx, s.task)
	} else {
		err = s.engine.Fetch(ctx, s.task)
	}

	if err != nil {
		// A pending pause or cancel wins over failure classification: the
		// worker exits silently whatever the transfer layer surfaced.
		if s.engine.Cancelled() || s.engine.Paused() {
			return
		}
		s.log.Error("download failed", "remote_instance", s.remoteInstanceID, "err", err)
		s.fail(data.Classify(err, data.CodeTransportFailure))
		return
	}

	s.log.Debug("download finished", "bytes", s.task.Offset())
	s.complete()
}

func (s *Session) workerDone() {
	s.mu.Lock()
	s.workerActive = false
	s.mu.Unlock()
}

// complete finalizes the descriptor, transitions to Completed and, for
// one-to-one transfers with the setting enabled, dispatches exactly one
// "displayed" delivery report. Finalization happens before any dispatch.
func (s *Session) complete() {
	s.content.SetLocation(s.task.Dest)

	s.mu.Lock()
	if s.state.Terminal() {
		// A cancel raced the last chunk; the terminal outcome already stands.
		s.mu.Unlock()
		return
	}
	s.state = data.StateCompleted
	s.mu.Unlock()

	metrics.TransferredBytes.Add(float64(s.task.Offset()))
	s.deregister()
	s.emit(transfer.EventComplete, "", s.progress())

	if s.group || !s.cfg.SendDisplayedReports || s.dispatcher == nil {
		return
	}
	err := s.dispatcher.Report(context.Background(), report.Request{
		Contact:          s.contact,
		MessageID:        s.id,
		Status:           data.DeliveryDisplayed,
		Timestamp:        time.Now(),
		ContributionID:   s.contributionID,
		RemoteInstanceID: s.remoteInstanceID,
		Group:            s.group,
	})
	if err != nil {
		// Reporting trouble never un-completes a finished transfer.
		s.log.Error("displayed report dispatch failed", "err", err)
	}
}

// fail transitions to Failed and notifies subscribers exactly once. A session
// already terminal keeps its outcome; completed and failed are never both
// observed for the same attempt.
func (s *Session) fail(te *data.TransferError) {
	s.mu.Lock()
	if s.state.Terminal() {
		s.mu.Unlock()
		return
	}
	s.state = data.StateError
	s.mu.Unlock()

	s.deregister()
	s.rep.Report(transfer.Event{
		SessionID: s.id,
		Type:      transfer.EventFailed,
		Time:      time.Now(),
		ErrorCode: te.Code,
		Detail:    te.Error(),
		Progress:  s.progress(),
	})
}
