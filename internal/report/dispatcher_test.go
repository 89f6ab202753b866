package report

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tinoosan/ftsd/internal/data"
)

type fakeChat struct {
	established bool
	calls       int
	err         error
}

func (f *fakeChat) MediaEstablished() bool { return f.established }

func (f *fakeChat) SendDeliveryStatus(_ context.Context, _, _ string, _ data.DeliveryStatus, _ time.Time) error {
	f.calls++
	return f.err
}

type fakeFinder struct {
	group    *fakeChat
	oneToOne *fakeChat
}

func (f *fakeFinder) GroupChatByContribution(string) (ChatSession, bool) {
	if f.group == nil {
		return nil, false
	}
	return f.group, true
}

func (f *fakeFinder) OneToOneChatByContact(string) (ChatSession, bool) {
	if f.oneToOne == nil {
		return nil, false
	}
	return f.oneToOne, true
}

type fakeControl struct {
	calls int
	err   error
	last  data.DeliveryReport
}

func (f *fakeControl) SendImmediate(_ context.Context, _ string, r data.DeliveryReport) error {
	f.calls++
	f.last = r
	return f.err
}

func req(msgID string, status data.DeliveryStatus) Request {
	return Request{
		Contact:          "+33612345678",
		MessageID:        msgID,
		Status:           status,
		Timestamp:        time.Now(),
		ContributionID:   "contrib-1",
		RemoteInstanceID: "urn:gruu:instance-1",
	}
}

func TestReportPrefersEstablishedChat(t *testing.T) {
	chat := &fakeChat{established: true}
	ctl := &fakeControl{}
	d := NewDispatcher(nil, &fakeFinder{oneToOne: chat}, ctl)

	err := d.Report(context.Background(), req("msg-1", data.DeliveryDisplayed))
	require.NoError(t, err)
	require.Equal(t, 1, chat.calls)
	require.Equal(t, 0, ctl.calls)
}

func TestReportFallsBackWhenMediaNotEstablished(t *testing.T) {
	chat := &fakeChat{established: false}
	ctl := &fakeControl{}
	d := NewDispatcher(nil, &fakeFinder{oneToOne: chat}, ctl)

	err := d.Report(context.Background(), req("msg-2", data.DeliveryDisplayed))
	require.NoError(t, err)
	require.Equal(t, 0, chat.calls)
	require.Equal(t, 1, ctl.calls)
	require.Equal(t, data.TransportOutOfBand, ctl.last.Transport)
}

func TestReportFallsBackWhenNoChatFound(t *testing.T) {
	ctl := &fakeControl{}
	d := NewDispatcher(nil, &fakeFinder{}, ctl)

	err := d.Report(context.Background(), req("msg-3", data.DeliveryDelivered))
	require.NoError(t, err)
	require.Equal(t, 1, ctl.calls)
	require.Equal(t, "msg-3", ctl.last.MessageID)
	require.Equal(t, data.DeliveryDelivered, ctl.last.Status)
}

func TestReportRoutesGroupByContribution(t *testing.T) {
	group := &fakeChat{established: true}
	oneToOne := &fakeChat{established: true}
	d := NewDispatcher(nil, &fakeFinder{group: group, oneToOne: oneToOne}, &fakeControl{})

	r := req("msg-4", data.DeliveryDisplayed)
	r.Group = true
	require.NoError(t, d.Report(context.Background(), r))
	require.Equal(t, 1, group.calls)
	require.Equal(t, 0, oneToOne.calls)
}

func TestReportDeduplicatesByMessageAndStatus(t *testing.T) {
	ctl := &fakeControl{}
	d := NewDispatcher(nil, &fakeFinder{}, ctl)

	r := req("msg-5", data.DeliveryDisplayed)
	require.NoError(t, d.Report(context.Background(), r))
	require.NoError(t, d.Report(context.Background(), r))
	require.Equal(t, 1, ctl.calls, "duplicate must not reach the transport")

	// Same message, different status is a distinct report.
	require.NoError(t, d.Report(context.Background(), req("msg-5", data.DeliveryDelivered)))
	require.Equal(t, 2, ctl.calls)
}

func TestReportReleasesKeyOnFailure(t *testing.T) {
	ctl := &fakeControl{err: errors.New("gateway unreachable")}
	d := NewDispatcher(nil, &fakeFinder{}, ctl)

	r := req("msg-6", data.DeliveryDisplayed)
	require.Error(t, d.Report(context.Background(), r))

	ctl.err = nil
	require.NoError(t, d.Report(context.Background(), r), "retry after failure must go through")
	require.Equal(t, 2, ctl.calls)
}

func TestReportInSessionFailureReleasesKey(t *testing.T) {
	chat := &fakeChat{established: true, err: errors.New("stream closed")}
	ctl := &fakeControl{}
	d := NewDispatcher(nil, &fakeFinder{oneToOne: chat}, ctl)

	r := req("msg-7", data.DeliveryDisplayed)
	require.Error(t, d.Report(context.Background(), r))

	chat.err = nil
	require.NoError(t, d.Report(context.Background(), r))
	require.Equal(t, 2, chat.calls)
	require.Equal(t, 0, ctl.calls)
}
