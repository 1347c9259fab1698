package workflow_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"

	"switchboard.app/server/internal/workflow"
)

type fakeTemporalClient struct {
	client.Client
	signalFn func(ctx context.Context, workflowID, runID, signalName string, arg interface{}) error
}

func (f *fakeTemporalClient) SignalWorkflow(ctx context.Context, workflowID, runID, signalName string, arg interface{}) error {
	return f.signalFn(ctx, workflowID, runID, signalName, arg)
}

var _ = Describe("TemporalSignaler", func() {
	var (
		fake     *fakeTemporalClient
		signaler *workflow.TemporalSignaler
		ctx      context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		fake = &fakeTemporalClient{}
		signaler = workflow.NewTemporalSignaler(fake)
	})

	It("signals the latest run", func() {
		var gotID, gotRun, gotName string
		var gotArg interface{}
		fake.signalFn = func(_ context.Context, workflowID, runID, signalName string, arg interface{}) error {
			gotID, gotRun, gotName, gotArg = workflowID, runID, signalName, arg
			return nil
		}

		err := signaler.Signal(ctx, "t1:agent:main", workflow.SignalHandleInboundMessage, "payload")
		Expect(err).NotTo(HaveOccurred())
		Expect(gotID).To(Equal("t1:agent:main"))
		Expect(gotRun).To(BeEmpty())
		Expect(gotName).To(Equal("HandleInboundMessage"))
		Expect(gotArg).To(Equal("payload"))
	})

	It("distinguishes a missing workflow", func() {
		fake.signalFn = func(context.Context, string, string, string, interface{}) error {
			return serviceerror.NewNotFound("workflow execution not found")
		}

		err := signaler.Signal(ctx, "t1:agent:main", workflow.SignalHandleInboundMessage, nil)
		Expect(errors.Is(err, workflow.ErrNotFound)).To(BeTrue())
	})

	It("wraps other failures", func() {
		boom := errors.New("frontend unavailable")
		fake.signalFn = func(context.Context, string, string, string, interface{}) error {
			return boom
		}

		err := signaler.Signal(ctx, "t1:agent:main", workflow.SignalHandleInboundMessage, nil)
		Expect(err).To(MatchError(boom))
		Expect(errors.Is(err, workflow.ErrNotFound)).To(BeFalse())
	})
})
