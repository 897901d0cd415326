package events_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"travelbooking/internal/app/handlers/events"
	domainbooking "travelbooking/internal/domain/booking"
	"travelbooking/internal/domain/shared/money"
	"travelbooking/internal/infra/inbox"
)

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Send(ctx context.Context, to, template string, data any) error {
	args := m.Called(ctx, to, template, data)
	return args.Error(0)
}

func TestNotificationRecipients(t *testing.T) {
	notifier := new(mockNotifier)
	d := events.NewDispatcher(inbox.NewMemory(), nil)
	(&events.NotificationHandler{Notifier: notifier}).Subscribe(d)
	ctx := context.Background()

	notifier.On("Send", mock.Anything, "host-1", events.TemplateBookingRequested, mock.AnythingOfType("booking.BookingRequested")).Return(nil).Once()
	notifier.On("Send", mock.Anything, "guest-1", events.TemplateBookingConfirmed, mock.AnythingOfType("booking.BookingConfirmed")).Return(nil).Once()
	notifier.On("Send", mock.Anything, "booking:bk-1", events.TemplatePaymentRefunded, mock.AnythingOfType("booking.PaymentRefundIssued")).Return(nil).Once()

	require.NoError(t, d.Dispatch(ctx, eventOf(t, "evt-1", domainbooking.BookingRequested{
		BookingID: "bk-1", HostID: "host-1", GuestID: "guest-1", Total: money.Must("300", "USD"), At: at,
	})))
	require.NoError(t, d.Dispatch(ctx, eventOf(t, "evt-2", domainbooking.BookingConfirmed{
		BookingID: "bk-1", GuestID: "guest-1", Total: money.Must("300", "USD"), At: at,
	})))
	require.NoError(t, d.Dispatch(ctx, eventOf(t, "evt-3", domainbooking.PaymentRefundIssued{
		BookingID: "bk-1", PaymentID: "pay-1", Amount: money.Must("300", "USD"), At: at,
	})))
	// No host on record: nothing to send.
	require.NoError(t, d.Dispatch(ctx, eventOf(t, "evt-4", domainbooking.BookingRequested{
		BookingID: "bk-2", GuestID: "guest-1", Total: money.Must("300", "USD"), At: at,
	})))

	notifier.AssertExpectations(t)
	notifier.AssertNumberOfCalls(t, "Send", 3)
}

func TestNotificationFailureIsRedelivered(t *testing.T) {
	notifier := new(mockNotifier)
	d := events.NewDispatcher(inbox.NewMemory(), nil)
	(&events.NotificationHandler{Notifier: notifier}).Subscribe(d)
	evt := eventOf(t, "evt-7", domainbooking.BookingCancelled{BookingID: "bk-1", GuestID: "guest-1", Refund: money.Must("0", "USD"), At: at})

	notifier.On("Send", mock.Anything, "guest-1", events.TemplateBookingCancelled, mock.Anything).Return(errors.New("smtp down")).Once()
	notifier.On("Send", mock.Anything, "guest-1", events.TemplateBookingCancelled, mock.Anything).Return(nil).Once()

	require.Error(t, d.Dispatch(context.Background(), evt))
	require.NoError(t, d.Dispatch(context.Background(), evt))
	assert.True(t, notifier.AssertNumberOfCalls(t, "Send", 2))
}
