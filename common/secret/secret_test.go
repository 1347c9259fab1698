package secret_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"switchboard.app/server/common/secret"
)

var _ = Describe("WebhookSecret", func() {
	It("is 32 alphanumeric characters", func() {
		s, err := secret.WebhookSecret()
		Expect(err).NotTo(HaveOccurred())
		Expect(s).To(MatchRegexp(`^[A-Za-z0-9]{32}$`))
	})

	It("does not repeat", func() {
		seen := map[string]bool{}
		for i := 0; i < 200; i++ {
			s, err := secret.WebhookSecret()
			Expect(err).NotTo(HaveOccurred())
			Expect(seen).NotTo(HaveKey(s))
			seen[s] = true
		}
	})

	It("honours the requested length", func() {
		s, err := secret.Generate(5)
		Expect(err).NotTo(HaveOccurred())
		Expect(s).To(HaveLen(5))
	})
})
