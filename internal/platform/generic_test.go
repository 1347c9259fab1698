package platform_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"switchboard.app/server/common/signature"
	"switchboard.app/server/internal/model"
	"switchboard.app/server/internal/platform"
)

var _ = Describe("Generic", func() {
	var (
		generic     *platform.Generic
		integration *model.AppIntegration
		ctx         context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		generic = platform.NewGeneric(platform.Options{})
		integration = integrationFor("generic")
	})

	Describe("Verify", func() {
		body := []byte(`{"participantId":"u1","content":"hi"}`)

		It("accepts the url secret", func() {
			Expect(generic.Verify(integration, plainRequest(body, testWebhookSecret))).To(Succeed())
		})

		It("rejects a wrong or missing url secret", func() {
			Expect(generic.Verify(integration, plainRequest(body, "nope"))).To(MatchError(platform.ErrUnauthorized))
			Expect(generic.Verify(integration, plainRequest(body, ""))).To(MatchError(platform.ErrUnauthorized))
		})

		It("verifies the optional body signature when present", func() {
			req := plainRequest(body, testWebhookSecret)
			req.Header.Set(platform.GenericSignatureHeader, signature.Sign(testWebhookSecret, body))
			Expect(generic.Verify(integration, req)).To(Succeed())

			req.Header.Set(platform.GenericSignatureHeader, signature.Sign("other", body))
			Expect(generic.Verify(integration, req)).To(MatchError(platform.ErrUnauthorized))
		})
	})

	Describe("Normalize", func() {
		It("reads text content", func() {
			in, err := generic.Normalize(ctx, integration, plainRequest([]byte(`{"participantId":"u1","participantChannelId":"c1","content":"Hello","metadata":{"k":"v"}}`), ""))
			Expect(err).NotTo(HaveOccurred())
			Expect(in.ParticipantID).To(Equal("u1"))
			Expect(in.ParticipantChannelID).To(Equal("c1"))
			Expect(in.Content).To(Equal(model.NewTextContent("Hello")))
			Expect(string(in.Metadata)).To(Equal(`{"k":"v"}`))
		})

		It("reads structured content and defaults the channel to the participant", func() {
			in, err := generic.Normalize(ctx, integration, plainRequest([]byte(`{"userId":"u2","content":{"choice":"yes"}}`), ""))
			Expect(err).NotTo(HaveOccurred())
			Expect(in.ParticipantID).To(Equal("u2"))
			Expect(in.ParticipantChannelID).To(Equal("u2"))
			Expect(in.Content.Kind).To(Equal(model.ContentKindData))
		})

		It("falls back to the default participant", func() {
			integration.MappingConfig.DefaultParticipantID = "anonymous"
			in, err := generic.Normalize(ctx, integration, plainRequest([]byte(`{"content":"hi"}`), ""))
			Expect(err).NotTo(HaveOccurred())
			Expect(in.ParticipantID).To(Equal("anonymous"))
		})

		It("leaves missing content empty", func() {
			in, err := generic.Normalize(ctx, integration, plainRequest([]byte(`{"participantId":"u1"}`), ""))
			Expect(err).NotTo(HaveOccurred())
			Expect(in.Content.IsEmpty()).To(BeTrue())
		})

		It("reports malformed JSON", func() {
			_, err := generic.Normalize(ctx, integration, plainRequest([]byte(`nope`), ""))
			Expect(err).To(MatchError(platform.ErrMalformed))
		})
	})

	Describe("Send", func() {
		var (
			server  *httptest.Server
			mu      sync.Mutex
			headers http.Header
			payload map[string]any
			rawBody []byte
		)

		BeforeEach(func() {
			server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				b, _ := io.ReadAll(r.Body)
				mu.Lock()
				headers = r.Header.Clone()
				rawBody = b
				_ = json.Unmarshal(b, &payload)
				mu.Unlock()
				w.WriteHeader(http.StatusAccepted)
			}))
			integration.Secrets.GenericOutboundURL = server.URL
		})

		AfterEach(func() {
			server.Close()
		})

		It("posts a signed webhook payload", func() {
			err := generic.Send(ctx, integration, platform.OutboundMessage{
				MessageID:     5,
				ThreadID:      6,
				WorkflowID:    "tenant-a:helper:main",
				ParticipantID: "u1",
				Content:       model.NewTextContent("Hi"),
			})
			Expect(err).NotTo(HaveOccurred())

			mu.Lock()
			defer mu.Unlock()
			Expect(headers.Get("X-Webhook-Event")).To(Equal("message"))
			Expect(headers.Get("X-Webhook-Id")).To(Equal("101"))
			Expect(headers.Get("X-Webhook-Delivery")).NotTo(BeEmpty())
			Expect(signature.Verify(testWebhookSecret, rawBody, headers.Get("X-Webhook-Signature"))).To(BeTrue())
			Expect(payload["workflowId"]).To(Equal("tenant-a:helper:main"))
			Expect(payload["isManualTrigger"]).To(BeFalse())
			Expect(payload["payload"]).To(HaveKeyWithValue("content", "Hi"))
		})

		It("surfaces non 2xx responses", func() {
			server.Config.Handler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			})
			err := generic.Send(ctx, integration, platform.OutboundMessage{Content: model.NewTextContent("Hi")})
			var statusErr *platform.StatusError
			Expect(errorsAs(err, &statusErr)).To(BeTrue())
			Expect(statusErr.Code).To(Equal(http.StatusBadGateway))
		})

		It("keeps the outbound url out of transport errors", func() {
			closed := httptest.NewServer(http.NotFoundHandler())
			closed.Close()
			integration.Secrets.GenericOutboundURL = closed.URL + "/hooks/T0/B0/SEKRETPATH?token=SEKRETQUERY"

			err := generic.Send(ctx, integration, platform.OutboundMessage{Content: model.NewTextContent("Hi")})
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).NotTo(ContainSubstring("SEKRETPATH"))
			Expect(err.Error()).NotTo(ContainSubstring("SEKRETQUERY"))
			Expect(err.Error()).To(ContainSubstring(closed.URL))

			var transportErr *platform.TransportError
			Expect(errorsAs(err, &transportErr)).To(BeTrue())
			Expect(transportErr.Op).To(Equal("Post"))
		})

		It("requires an outbound url", func() {
			integration.Secrets.GenericOutboundURL = ""
			err := generic.Send(ctx, integration, platform.OutboundMessage{Content: model.NewTextContent("Hi")})
			Expect(err).To(MatchError(platform.ErrNotConfigured))
		})
	})
})
