package httpdl

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/tinoosan/ftsd/internal/data"
	"github.com/tinoosan/ftsd/internal/transfer"
)

// Fetch transfers the resource from byte zero. Failures come back already
// classified; a pending pause/cancel surfaces as transfer.ErrStopped with the
// matching flag still observable.
func (e *Engine) Fetch(ctx context.Context, t *transfer.Task) error {
	// A fresh fetch clears a stale pause left over from a previous attempt.
	e.paused.Store(false)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.Source, nil)
	if err != nil {
		return data.NewTransferError(data.CodeTransportFailure, err)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return e.stopOrFail(t, data.CodeTransportFailure, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return data.NewTransferError(data.CodeTransferIncomplete,
			fmt.Errorf("resource absent: http %d", resp.StatusCode))
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return data.NewTransferError(data.CodeTransportFailure,
			fmt.Errorf("http %d fetching %s", resp.StatusCode, t.Source))
	}

	// Capture the resource identity for later resume validation.
	t.ETag = resp.Header.Get("ETag")
	if t.Total <= 0 && resp.ContentLength > 0 {
		t.Total = resp.ContentLength
	}

	f, err := e.openDest(t)
	if err != nil {
		return data.NewTransferError(data.CodeTransferIncomplete, err)
	}

	t.SetStatus(transfer.StatusActive)
	return e.copyLoop(ctx, t, resp.Body, f)
}

// ResumeFrom re-issues the request with a byte range starting at the
// preserved offset. The remote resource must still match the identity
// captured by the original request; a changed resource is a distinct failure,
// never a silent restart from zero.
func (e *Engine) ResumeFrom(ctx context.Context, t *transfer.Task) error {
	e.paused.Store(false)

	offset := t.Offset()
	if offset == 0 {
		return e.Fetch(ctx, t)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.Source, nil)
	if err != nil {
		return data.NewTransferError(data.CodeTransportFailure, err)
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-", offset))
	if t.ETag != "" {
		req.Header.Set("If-Range", t.ETag)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return e.stopOrFail(t, data.CodeTransportFailure, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	switch resp.StatusCode {
	case http.StatusPartialContent:
		// Server honored the range; identity still valid.
	case http.StatusOK:
		// Full body back means the resource no longer matches the original
		// request (If-Range mismatch or no range support).
		return data.NewTransferError(data.CodeResourceChanged, transfer.ErrResourceChanged)
	case http.StatusPreconditionFailed, http.StatusRequestedRangeNotSatisfiable:
		return data.NewTransferError(data.CodeResourceChanged, transfer.ErrResourceChanged)
	case http.StatusNotFound, http.StatusGone:
		return data.NewTransferError(data.CodeTransferIncomplete,
			fmt.Errorf("resource absent on resume: http %d", resp.StatusCode))
	default:
		return data.NewTransferError(data.CodeTransportFailure,
			fmt.Errorf("http %d resuming %s", resp.StatusCode, t.Source))
	}

	if et := resp.Header.Get("ETag"); et != "" && t.ETag != "" && et != t.ETag {
		return data.NewTransferError(data.CodeResourceChanged, transfer.ErrResourceChanged)
	}

	f, err := os.OpenFile(t.Dest, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return data.NewTransferError(data.CodeTransferIncomplete, err)
	}
	if fi, err := f.Stat(); err != nil || fi.Size() != offset {
		_ = f.Close()
		return data.NewTransferError(data.CodeTransferIncomplete,
			fmt.Errorf("partial file size does not match preserved offset %d", offset))
	}

	t.SetStatus(transfer.StatusActive)
	return e.copyLoop(ctx, t, resp.Body, f)
}

// copyLoop drains body into f one chunk at a time, checking the suspension
// flags at every chunk boundary. It owns closing f.
func (e *Engine) copyLoop(ctx context.Context, t *transfer.Task, body io.Reader, f *os.File) error {
	defer func() {
		_ = f.Close()
	}()

	buf := make([]byte, e.chunk)
	for {
		if e.cancelled.Load() {
			t.SetStatus(transfer.StatusCancelled)
			e.log.Debug("transfer cancelled", "session", t.SessionID, "offset", t.Offset())
			return transfer.ErrStopped
		}
		if e.paused.Load() {
			t.SetStatus(transfer.StatusPaused)
			e.log.Debug("transfer paused", "session", t.SessionID, "offset", t.Offset())
			return transfer.ErrStopped
		}
		if err := ctx.Err(); err != nil {
			return e.stopOrFail(t, data.CodeTransportFailure, err)
		}

		n, rerr := body.Read(buf)
		if n > 0 {
			if _, werr := f.Write(buf[:n]); werr != nil {
				return data.NewTransferError(data.CodeTransferIncomplete, werr)
			}
			t.Advance(int64(n))
			e.progress(t)
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return e.stopOrFail(t, data.CodeTransportFailure, rerr)
		}
	}

	if t.Total > 0 && t.Offset() != t.Total {
		t.SetStatus(transfer.StatusFailed)
		return data.NewTransferError(data.CodeTransferIncomplete,
			fmt.Errorf("got %d of %d bytes", t.Offset(), t.Total))
	}
	t.SetStatus(transfer.StatusComplete)
	return nil
}

// stopOrFail maps an in-flight error to ErrStopped when a suspension was
// requested; the pending pause/cancel takes priority over classification.
func (e *Engine) stopOrFail(t *transfer.Task, code data.ErrorCode, err error) error {
	if e.cancelled.Load() {
		t.SetStatus(transfer.StatusCancelled)
		return transfer.ErrStopped
	}
	if e.paused.Load() {
		t.SetStatus(transfer.StatusPaused)
		return transfer.ErrStopped
	}
	t.SetStatus(transfer.StatusFailed)
	return data.NewTransferError(code, err)
}

// openDest creates the destination file according to the collision policy.
// Rename probes dest.1, dest.2, ... and updates the task so the finalized
// location matches the file actually written.
func (e *Engine) openDest(t *transfer.Task) (*os.File, error) {
	switch e.policy {
	case transfer.CollisionOverwrite:
		return os.OpenFile(t.Dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	case transfer.CollisionRename:
		f, err := os.OpenFile(t.Dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil || !os.IsExist(err) {
			return f, err
		}
		ext := filepath.Ext(t.Dest)
		base := t.Dest[:len(t.Dest)-len(ext)]
		for i := 1; ; i++ {
			cand := fmt.Sprintf("%s.%d%s", base, i, ext)
			f, err := os.OpenFile(cand, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
			if err == nil {
				t.Dest = cand
				return f, nil
			}
			if !os.IsExist(err) {
				return nil, err
			}
		}
	default: // transfer.CollisionError
		return os.OpenFile(t.Dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	}
}
