package model_test

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"switchboard.app/server/internal/model"
)

var _ = Describe("MessageContent", func() {
	It("treats JSON strings as text", func() {
		c, err := model.ContentFromJSON(json.RawMessage(`"Hello"`))
		Expect(err).NotTo(HaveOccurred())
		Expect(c.Kind).To(Equal(model.ContentKindText))
		Expect(c.PlainText()).To(Equal("Hello"))
	})

	It("treats objects as data", func() {
		c, err := model.ContentFromJSON(json.RawMessage(` {"text":"Hi","buttons":[1]} `))
		Expect(err).NotTo(HaveOccurred())
		Expect(c.Kind).To(Equal(model.ContentKindData))
		Expect(c.PlainText()).To(Equal("Hi"))
		Expect(string(c.Value())).To(Equal(`{"text":"Hi","buttons":[1]}`))
	})

	It("renders data without a text field as raw JSON", func() {
		c := model.NewDataContent(json.RawMessage(`{"amount":3}`))
		Expect(c.PlainText()).To(Equal(`{"amount":3}`))
	})

	It("rejects empty and scalar values", func() {
		_, err := model.ContentFromJSON(json.RawMessage(`null`))
		Expect(err).To(MatchError(model.ErrEmptyContent))

		_, err = model.ContentFromJSON(json.RawMessage(`12`))
		Expect(err).To(HaveOccurred())
	})

	It("reports emptiness per kind", func() {
		Expect(model.NewTextContent("").IsEmpty()).To(BeTrue())
		Expect(model.NewDataContent(nil).IsEmpty()).To(BeTrue())
		Expect(model.MessageContent{}.IsEmpty()).To(BeTrue())
		Expect(model.NewTextContent("x").IsEmpty()).To(BeFalse())
	})
})
