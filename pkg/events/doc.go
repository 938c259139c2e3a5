// Package events delivers analytics impressions: variation-shown events,
// conversion events from Track, visitor attribute updates and impact-campaign
// holdout impressions.
//
// The decision engine only ever calls Dispatcher.Dispatch, which is
// fire-and-forget: it enqueues onto a bounded buffer and returns immediately,
// never blocking a flag evaluation on network I/O. A background worker
// batches queued impressions and hands them to a Sink when the batch fills
// or the flush interval elapses. When the buffer is full the impression is
// dropped and counted; analytics loss must never stall the host application.
//
//	sink := events.NewHTTPSink(endpointURL)
//	dispatcher := events.NewDispatcher(sink, log)
//	dispatcher.Dispatch(events.Impression{
//		EventName:   events.EventVariationShown,
//		AccountID:   1001,
//		UserID:      "user-1",
//		CampaignID:  20,
//		VariationID: 2,
//	})
//	defer dispatcher.Close(ctx)
//
// Close flushes whatever is still queued before returning.
package events
