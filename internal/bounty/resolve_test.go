package bounty_test

import (
	"context"
	"errors"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/skridlevsky/bounty-feed/internal/bounty"
	"github.com/skridlevsky/bounty-feed/internal/etherscan"
)

var _ = Describe("Resolver", func() {
	var (
		ctx      context.Context
		explorer *fakeExplorer
		symbols  *fakeSymbols
		resolver *bounty.Resolver
	)

	BeforeEach(func() {
		ctx = context.Background()
		explorer = newFakeExplorer()
		symbols = &fakeSymbols{symbol: "DAI"}
		resolver = bounty.NewResolver(explorer, symbols, "MYB")
	})

	It("should use a stated amount without calling the explorer", func() {
		amount := 40.0
		explorer.transfers[addrA] = []etherscan.Transfer{inbound(addrA, "1000000000000000000", "ETHX")}

		value, err := resolver.Resolve(ctx, bounty.Claim{ContractAddress: addrA, StatedAmount: &amount})

		Expect(err).NotTo(HaveOccurred())
		Expect(*value).To(Equal(bounty.ValueInfo{TokenSymbol: "MYB", Value: 40}))
		Expect(explorer.TotalCalls()).To(BeZero())
	})

	It("should return nil without a claim", func() {
		value, err := resolver.Resolve(ctx, bounty.Claim{})

		Expect(err).NotTo(HaveOccurred())
		Expect(value).To(BeNil())
		Expect(explorer.TotalCalls()).To(BeZero())
	})

	It("should return nil when the address has no history", func() {
		value, err := resolver.Resolve(ctx, bounty.Claim{ContractAddress: addrA})

		Expect(err).NotTo(HaveOccurred())
		Expect(value).To(BeNil())
	})

	It("should return nil for an empty transfer list", func() {
		explorer.transfers[addrA] = []etherscan.Transfer{}

		value, err := resolver.Resolve(ctx, bounty.Claim{ContractAddress: addrA})

		Expect(err).NotTo(HaveOccurred())
		Expect(value).To(BeNil())
	})

	It("should sum inbound transfers only, matching the address case-insensitively", func() {
		explorer.transfers[addrA] = []etherscan.Transfer{
			inbound(strings.ToLower(addrA), "1500000000000000000", "MYB"),
			outbound(addrA, "700000000000000000", "MYB"),
			inbound(addrA, "500000000000000000", "MYB"),
		}

		value, err := resolver.Resolve(ctx, bounty.Claim{ContractAddress: addrA})

		Expect(err).NotTo(HaveOccurred())
		Expect(value.TokenSymbol).To(Equal("MYB"))
		Expect(value.Value).To(Equal(2.0))
		Expect(symbols.calls).To(BeZero())
	})

	It("should ignore self transfers", func() {
		self := inbound(addrA, "1000000000000000000", "MYB")
		self.From = strings.ToLower(addrA)
		explorer.transfers[addrA] = []etherscan.Transfer{
			self,
			inbound(addrA, "250000000000000000", "MYB"),
		}

		value, err := resolver.Resolve(ctx, bounty.Claim{ContractAddress: addrA})

		Expect(err).NotTo(HaveOccurred())
		Expect(value.Value).To(Equal(0.25))
	})

	It("should resolve to zero when the only transfer is to itself", func() {
		self := inbound(addrA, "1000000000000000000", "MYB")
		self.From = addrA
		explorer.transfers[addrA] = []etherscan.Transfer{self}

		value, err := resolver.Resolve(ctx, bounty.Claim{ContractAddress: addrA})

		Expect(err).NotTo(HaveOccurred())
		Expect(value.Value).To(BeZero())
	})

	It("should look up the symbol when the explorer leaves it blank", func() {
		t := inbound(addrA, "1000000000000000000", "")
		t.ContractAddress = addrB
		explorer.transfers[addrA] = []etherscan.Transfer{t}

		value, err := resolver.Resolve(ctx, bounty.Claim{ContractAddress: addrA})

		Expect(err).NotTo(HaveOccurred())
		Expect(value.TokenSymbol).To(Equal("DAI"))
		Expect(symbols.calls).To(Equal(1))
	})

	It("should keep the value when the symbol lookup fails", func() {
		symbols.err = errors.New("execution reverted")
		t := inbound(addrA, "3000000000000000000", "")
		t.ContractAddress = addrB
		explorer.transfers[addrA] = []etherscan.Transfer{t}

		value, err := resolver.Resolve(ctx, bounty.Claim{ContractAddress: addrA})

		Expect(err).NotTo(HaveOccurred())
		Expect(value.TokenSymbol).To(BeEmpty())
		Expect(value.Value).To(Equal(3.0))
	})

	It("should resolve to zero when every transfer is outbound", func() {
		explorer.transfers[addrA] = []etherscan.Transfer{outbound(addrA, "1000000000000000000", "MYB")}

		value, err := resolver.Resolve(ctx, bounty.Claim{ContractAddress: addrA})

		Expect(err).NotTo(HaveOccurred())
		Expect(value.Value).To(BeZero())
	})

	It("should propagate explorer failures", func() {
		explorer.errs[addrA] = errors.New("etherscan error 502")

		_, err := resolver.Resolve(ctx, bounty.Claim{ContractAddress: addrA})

		Expect(err).To(MatchError(ContainSubstring("etherscan error 502")))
	})
})
