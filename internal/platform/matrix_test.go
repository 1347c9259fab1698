package platform_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"switchboard.app/server/internal/model"
	"switchboard.app/server/internal/platform"
)

var _ = Describe("Matrix", func() {
	var (
		matrix      *platform.Matrix
		integration *model.AppIntegration
		ctx         context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		matrix = platform.NewMatrix(platform.Options{})
		integration = integrationFor("matrix")
		integration.Configuration["homeserver"] = "https://matrix.example.org"
		integration.Configuration["userId"] = "@bot:example.org"
		integration.Secrets.MatrixAccessToken = "syt_token"
	})

	It("normalizes the first text message of a transaction", func() {
		body := []byte(`{"events":[
			{"type":"m.room.member","sender":"@alice:example.org","room_id":"!room:example.org","event_id":"$0","content":{"membership":"join"}},
			{"type":"m.room.message","sender":"@bot:example.org","room_id":"!room:example.org","event_id":"$1","content":{"msgtype":"m.text","body":"echo"}},
			{"type":"m.room.message","sender":"@alice:example.org","room_id":"!room:example.org","event_id":"$2","content":{"msgtype":"m.text","body":"Hello"}}
		]}`)
		in, err := matrix.Normalize(ctx, integration, plainRequest(body, testWebhookSecret))
		Expect(err).NotTo(HaveOccurred())
		Expect(in.ParticipantID).To(Equal("@alice:example.org"))
		Expect(in.ParticipantChannelID).To(Equal("!room:example.org"))
		Expect(in.Content.PlainText()).To(Equal("Hello"))
	})

	It("ignores transactions without user text", func() {
		body := []byte(`{"events":[{"type":"m.room.message","sender":"@alice:example.org","room_id":"!r:x","event_id":"$3","content":{"msgtype":"m.image","body":"cat.png"}}]}`)
		_, err := matrix.Normalize(ctx, integration, plainRequest(body, testWebhookSecret))
		Expect(err).To(MatchError(platform.ErrIgnored))
	})

	It("sends an m.room.message with an html body", func() {
		var (
			mu     sync.Mutex
			paths  []string
			auth   string
			sentTo map[string]any
		)
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			b, _ := io.ReadAll(r.Body)
			mu.Lock()
			paths = append(paths, r.Method+" "+r.URL.Path)
			auth = r.Header.Get("Authorization")
			_ = json.Unmarshal(b, &sentTo)
			mu.Unlock()
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"event_id":"$sent"}`))
		}))
		defer server.Close()
		integration.Configuration["homeserver"] = server.URL

		err := matrix.Send(ctx, integration, platform.OutboundMessage{
			ParticipantChannelID: "!room:example.org",
			Content:              model.NewTextContent("*hi*"),
		})
		Expect(err).NotTo(HaveOccurred())

		mu.Lock()
		defer mu.Unlock()
		Expect(paths).To(HaveLen(1))
		Expect(paths[0]).To(HavePrefix("PUT "))
		Expect(strings.Contains(paths[0], "/send/m.room.message/")).To(BeTrue())
		Expect(auth).To(Equal("Bearer syt_token"))
		Expect(sentTo["body"]).To(Equal("*hi*"))
		Expect(sentTo["formatted_body"]).To(ContainSubstring("<em>hi</em>"))
	})

	It("requires a homeserver and token", func() {
		bare := integrationFor("matrix")
		Expect(matrix.Test(bare)).To(ConsistOf("homeserver is missing", "access token is missing"))
	})
})
