package platform_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"switchboard.app/server/internal/model"
	"switchboard.app/server/internal/platform"
)

var _ = Describe("Slack", func() {
	const signingSecret = "8f742231b10e8888abcd99yyyzzz85a5"

	var (
		slack       *platform.Slack
		integration *model.AppIntegration
		now         time.Time
		ctx         context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		now = time.Unix(1_700_000_000, 0)
		slack = platform.NewSlack(platform.Options{
			Now:          func() time.Time { return now },
			ReplayWindow: 5 * time.Minute,
		})
		integration = integrationFor("slack")
		integration.Secrets.SlackSigningSecret = signingSecret
	})

	Describe("Verify", func() {
		body := []byte(`{"type":"event_callback"}`)

		It("accepts a valid signature", func() {
			Expect(slack.Verify(integration, signedSlackRequest(signingSecret, body, now))).To(Succeed())
		})

		It("rejects a signature made with another secret", func() {
			req := signedSlackRequest("wrong", body, now)
			Expect(slack.Verify(integration, req)).To(MatchError(platform.ErrUnauthorized))
		})

		It("rejects a tampered body", func() {
			req := signedSlackRequest(signingSecret, body, now)
			req.Body = []byte(`{"type":"event_callback","x":1}`)
			Expect(slack.Verify(integration, req)).To(MatchError(platform.ErrUnauthorized))
		})

		It("rejects requests outside the replay window", func() {
			req := signedSlackRequest(signingSecret, body, now.Add(-6*time.Minute))
			req.ReceivedAt = now
			Expect(slack.Verify(integration, req)).To(MatchError(platform.ErrUnauthorized))
		})

		It("rejects missing headers", func() {
			req := plainRequest(body, "")
			Expect(slack.Verify(integration, req)).To(MatchError(platform.ErrUnauthorized))
		})
	})

	Describe("Handshake", func() {
		It("answers url verification with the challenge", func() {
			hs := slack.Handshake(plainRequest([]byte(`{"token":"t","challenge":"3eZbrw1aBm2rZgRNFdxV2595E9CY3gmdALWMmHkvFXO7tYXAYM8P","type":"url_verification"}`), ""))
			Expect(hs).NotTo(BeNil())
			Expect(string(hs.Body)).To(Equal("3eZbrw1aBm2rZgRNFdxV2595E9CY3gmdALWMmHkvFXO7tYXAYM8P"))
		})

		It("ignores regular callbacks", func() {
			Expect(slack.Handshake(plainRequest([]byte(`{"type":"event_callback","event":{"type":"message"}}`), ""))).To(BeNil())
		})
	})

	Describe("Normalize", func() {
		message := func(event string) []byte {
			return []byte(`{"token":"t","team_id":"T1","api_app_id":"A1","type":"event_callback","event_id":"Ev1","event_time":1700000000,"event":` + event + `}`)
		}

		It("turns a user message into an inbound message", func() {
			body := message(`{"type":"message","channel":"C123","user":"U456","text":"Hello","ts":"1700000000.000100"}`)
			in, err := slack.Normalize(ctx, integration, plainRequest(body, ""))
			Expect(err).NotTo(HaveOccurred())
			Expect(in.ParticipantID).To(Equal("U456"))
			Expect(in.ParticipantChannelID).To(Equal("C123"))
			Expect(in.Content).To(Equal(model.NewTextContent("Hello")))

			var meta map[string]map[string]string
			Expect(json.Unmarshal(in.Metadata, &meta)).To(Succeed())
			Expect(meta["slack"]["ts"]).To(Equal("1700000000.000100"))
			Expect(meta["slack"]["team_id"]).To(Equal("T1"))
		})

		It("honours the mapping config", func() {
			integration.MappingConfig = model.MappingConfig{
				ParticipantIDSource: model.MappingSourceChannel,
				ScopeSource:         model.MappingSourceThread,
			}
			body := message(`{"type":"message","channel":"C123","user":"U456","text":"Hi","ts":"1.1","thread_ts":"0.9"}`)
			in, err := slack.Normalize(ctx, integration, plainRequest(body, ""))
			Expect(err).NotTo(HaveOccurred())
			Expect(in.ParticipantID).To(Equal("C123"))
			Expect(in.ParticipantChannelID).To(Equal("0.9"))
		})

		It("resolves path sources against the raw payload", func() {
			integration.MappingConfig = model.MappingConfig{
				ParticipantIDSource: model.MappingSourcePath,
				ParticipantIDPath:   "team_id",
			}
			body := message(`{"type":"message","channel":"C1","user":"U1","text":"Hi","ts":"1.1"}`)
			in, err := slack.Normalize(ctx, integration, plainRequest(body, ""))
			Expect(err).NotTo(HaveOccurred())
			Expect(in.ParticipantID).To(Equal("T1"))
		})

		DescribeTable("ignores events without a user message",
			func(event string) {
				_, err := slack.Normalize(ctx, integration, plainRequest(message(event), ""))
				Expect(err).To(MatchError(platform.ErrIgnored))
			},
			Entry("bot echo", `{"type":"message","channel":"C1","bot_id":"B1","text":"echo","ts":"1.1"}`),
			Entry("edit", `{"type":"message","subtype":"message_changed","channel":"C1","ts":"1.1"}`),
			Entry("reaction", `{"type":"reaction_added","user":"U1","reaction":"thumbsup","item":{"type":"message","channel":"C1","ts":"1.1"}}`),
		)

		It("reports malformed JSON", func() {
			_, err := slack.Normalize(ctx, integration, plainRequest([]byte(`{not json`), ""))
			Expect(err).To(MatchError(platform.ErrMalformed))
		})
	})

	Describe("Send", func() {
		var (
			server   *httptest.Server
			mu       sync.Mutex
			received []map[string]string
		)

		BeforeEach(func() {
			received = nil
			server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_ = r.ParseForm()
				mu.Lock()
				received = append(received, map[string]string{
					"path":      r.URL.Path,
					"channel":   r.PostForm.Get("channel"),
					"text":      r.PostForm.Get("text"),
					"thread_ts": r.PostForm.Get("thread_ts"),
				})
				mu.Unlock()
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"ok":true,"channel":"C123","ts":"1700000001.000200"}`))
			}))
			slack = platform.NewSlack(platform.Options{SlackAPIURL: server.URL + "/"})
		})

		AfterEach(func() {
			server.Close()
		})

		It("posts with the bot token into the participant channel thread", func() {
			integration.Secrets.SlackBotToken = "xoxb-test"
			err := slack.Send(ctx, integration, platform.OutboundMessage{
				MessageID:            1,
				ParticipantChannelID: "C123",
				Content:              model.NewTextContent("Hi there"),
				Metadata:             json.RawMessage(`{"slack":{"channel":"C123","ts":"1700000000.000100"}}`),
			})
			Expect(err).NotTo(HaveOccurred())

			mu.Lock()
			defer mu.Unlock()
			Expect(received).To(HaveLen(1))
			Expect(received[0]["path"]).To(Equal("/chat.postMessage"))
			Expect(received[0]["channel"]).To(Equal("C123"))
			Expect(received[0]["text"]).To(Equal("Hi there"))
			Expect(received[0]["thread_ts"]).To(Equal("1700000000.000100"))
		})

		It("keeps the incoming webhook url out of transport errors", func() {
			closed := httptest.NewServer(http.NotFoundHandler())
			closed.Close()
			integration.Secrets.SlackIncomingWebhookURL = closed.URL + "/services/T0/B0/SEKRETPATH"

			err := slack.Send(ctx, integration, platform.OutboundMessage{ParticipantChannelID: "C1", Content: model.NewTextContent("x")})
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(HavePrefix("slack incoming webhook: "))
			Expect(err.Error()).NotTo(ContainSubstring("SEKRETPATH"))
		})

		It("fails when nothing is configured for replies", func() {
			err := slack.Send(ctx, integration, platform.OutboundMessage{ParticipantChannelID: "C1", Content: model.NewTextContent("x")})
			Expect(err).To(MatchError(platform.ErrNotConfigured))
		})
	})

	It("requires a signing secret", func() {
		integration.Secrets.SlackSigningSecret = ""
		Expect(slack.Validate(integration)).To(MatchError(platform.ErrInvalidConfig))
		Expect(slack.Test(integration)).To(ContainElement("signing secret is missing"))
	})
})
