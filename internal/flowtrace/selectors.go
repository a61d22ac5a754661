package flowtrace

import (
	"strings"

	"github.com/its-DeFine/livepeer-delegation-research-sub000/internal/scanner"
)

// routerSignatures are the swap entry points recognized as evidence of a
// router interaction when the hop destination itself carries no label.
var routerSignatures = []string{
	"swapExactTokensForTokens(uint256,uint256,address[],address,uint256)",
	"swapTokensForExactTokens(uint256,uint256,address[],address,uint256)",
	"swapExactTokensForETH(uint256,uint256,address[],address,uint256)",
	"swapExactETHForTokens(uint256,address[],address,uint256)",
	"exactInputSingle((address,address,uint24,address,uint256,uint256,uint256,uint160))",
	"exactInput((bytes,address,uint256,uint256,uint256))",
	"execute(bytes,bytes[],uint256)",
	"multicall(uint256,bytes[])",
}

var routerSelectors = func() map[string]struct{} {
	m := make(map[string]struct{}, len(routerSignatures))
	for _, sig := range routerSignatures {
		m[scanner.CallSelector(sig)] = struct{}{}
	}
	return m
}()

// IsRouterSelector reports whether a 4-byte call selector belongs to a
// recognized swap entry point.
func IsRouterSelector(selector string) bool {
	_, ok := routerSelectors[strings.ToLower(selector)]
	return ok
}
