package tenant_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"switchboard.app/server/internal/tenant"
)

var _ = Describe("tenant context", func() {
	It("is absent on a bare context", func() {
		_, ok := tenant.FromContext(context.Background())
		Expect(ok).To(BeFalse())

		_, err := tenant.Require(context.Background())
		Expect(err).To(MatchError(tenant.ErrMissingTenant))
	})

	It("defaults the user to system", func() {
		ctx := tenant.WithInfo(context.Background(), tenant.Info{TenantID: "t1"})
		info, err := tenant.Require(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(info.TenantID).To(Equal("t1"))
		Expect(info.LoggedInUser).To(Equal(tenant.SystemUser))
	})
})
