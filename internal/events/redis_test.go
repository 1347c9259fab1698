package events_test

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"switchboard.app/server/internal/events"
	"switchboard.app/server/internal/model"
)

var _ = Describe("ParseEventValues", func() {
	It("decodes the event body of a stream entry", func() {
		ev := events.MessageEvent{
			MessageID: 99,
			ThreadID:  7,
			Direction: model.DirectionOutgoing,
			Origin:    "app:slack:12",
			Content:   model.NewTextContent("hi"),
		}
		body, err := json.Marshal(ev)
		Expect(err).NotTo(HaveOccurred())

		parsed, err := events.ParseEventValues(map[string]any{
			"message_id": "99",
			"direction":  "outgoing",
			"event":      string(body),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(parsed.MessageID).To(Equal(int64(99)))
		Expect(parsed.Origin).To(Equal("app:slack:12"))
		Expect(parsed.Content.PlainText()).To(Equal("hi"))
	})

	It("rejects entries without an event body", func() {
		_, err := events.ParseEventValues(map[string]any{"message_id": "1"})
		Expect(err).To(HaveOccurred())
	})

	It("rejects mismatched ids", func() {
		_, err := events.ParseEventValues(map[string]any{
			"message_id": "2",
			"event":      `{"message_id":1}`,
		})
		Expect(err).To(HaveOccurred())
	})
})
