package friction

// Operation identifies one on-chain action for cost lookup.
type Operation string

const (
	OpSwap            Operation = "swap"
	OpAddLiquidity    Operation = "add_liquidity"
	OpRemoveLiquidity Operation = "remove_liquidity"
	OpHarvest         Operation = "harvest"
	OpCompound        Operation = "compound"
	OpStake           Operation = "stake"
	OpUnstake         Operation = "unstake"
	OpBridge          Operation = "bridge"
	OpApprove         Operation = "approve"
	OpSupply          Operation = "supply"
	OpWithdraw        Operation = "withdraw"
	OpBorrow          Operation = "borrow"
	OpRepay           Operation = "repay"
)

// defaultGasCostUSD holds per-chain, per-operation gas cost baselines in USD.
// These are long-run averages; the live collector can override them via
// NewCalculatorWithTables.
var defaultGasCostUSD = map[string]map[Operation]float64{
	"ethereum": {
		OpSwap:            15.0,
		OpAddLiquidity:    25.0,
		OpRemoveLiquidity: 20.0,
		OpHarvest:         12.0,
		OpCompound:        35.0, // harvest + swap + add_liquidity
		OpApprove:         8.0,
		OpSupply:          12.0,
		OpWithdraw:        10.0,
		OpBorrow:          3.5,
		OpRepay:           2.5,
		OpBridge:          20.0,
		OpStake:           10.0,
		OpUnstake:         10.0,
	},
	"arbitrum": {
		OpSwap:            0.15,
		OpAddLiquidity:    0.25,
		OpRemoveLiquidity: 0.20,
		OpHarvest:         0.12,
		OpCompound:        0.40,
		OpApprove:         0.05,
		OpSupply:          0.12,
		OpWithdraw:        0.10,
		OpBorrow:          0.08,
		OpRepay:           0.06,
		OpBridge:          5.0,
		OpStake:           0.10,
		OpUnstake:         0.10,
	},
	"polygon": {
		OpSwap:            0.02,
		OpAddLiquidity:    0.04,
		OpRemoveLiquidity: 0.03,
		OpHarvest:         0.02,
		OpCompound:        0.06,
		OpApprove:         0.01,
		OpSupply:          0.02,
		OpWithdraw:        0.02,
		OpBorrow:          0.02,
		OpRepay:           0.015,
		OpBridge:          3.0,
		OpStake:           0.02,
		OpUnstake:         0.02,
	},
	"base": {
		OpSwap:            0.05,
		OpAddLiquidity:    0.10,
		OpRemoveLiquidity: 0.08,
		OpHarvest:         0.05,
		OpCompound:        0.15,
		OpApprove:         0.02,
		OpSupply:          0.05,
		OpWithdraw:        0.04,
		OpBorrow:          0.08,
		OpRepay:           0.06,
		OpBridge:          5.0,
		OpStake:           0.05,
		OpUnstake:         0.05,
	},
	"optimism": {
		OpSwap:            0.05,
		OpAddLiquidity:    0.10,
		OpRemoveLiquidity: 0.08,
		OpHarvest:         0.05,
		OpCompound:        0.15,
		OpApprove:         0.02,
		OpSupply:          0.05,
		OpWithdraw:        0.04,
		OpBorrow:          0.08,
		OpRepay:           0.06,
		OpBridge:          5.0,
		OpStake:           0.05,
		OpUnstake:         0.05,
	},
	"bsc": {
		OpSwap:            0.10,
		OpAddLiquidity:    0.20,
		OpRemoveLiquidity: 0.15,
		OpHarvest:         0.10,
		OpCompound:        0.30,
		OpApprove:         0.05,
		OpSupply:          0.10,
		OpWithdraw:        0.08,
		OpBorrow:          0.15,
		OpRepay:           0.12,
		OpBridge:          3.0,
		OpStake:           0.10,
		OpUnstake:         0.10,
	},
	"avalanche": {
		OpSwap:            0.08,
		OpAddLiquidity:    0.15,
		OpRemoveLiquidity: 0.12,
		OpHarvest:         0.08,
		OpCompound:        0.25,
		OpApprove:         0.03,
		OpSupply:          0.08,
		OpWithdraw:        0.06,
		OpBorrow:          0.12,
		OpRepay:           0.10,
		OpBridge:          4.0,
		OpStake:           0.08,
		OpUnstake:         0.08,
	},
	"aptos": {
		OpSwap:            0.005,
		OpAddLiquidity:    0.008,
		OpRemoveLiquidity: 0.006,
		OpHarvest:         0.004,
		OpCompound:        0.012,
		OpApprove:         0.002,
		OpSupply:          0.004,
		OpWithdraw:        0.004,
		OpBorrow:          0.005,
		OpRepay:           0.004,
		OpBridge:          2.0,
		OpStake:           0.004,
		OpUnstake:         0.004,
	},
	"solana": {
		OpSwap:            0.003,
		OpAddLiquidity:    0.005,
		OpRemoveLiquidity: 0.004,
		OpHarvest:         0.003,
		OpCompound:        0.008,
		OpApprove:         0.001,
		OpSupply:          0.003,
		OpWithdraw:        0.003,
		OpBorrow:          0.003,
		OpRepay:           0.002,
		OpBridge:          2.0,
		OpStake:           0.003,
		OpUnstake:         0.003,
	},
}

// defaultFeeRates maps protocol IDs to their trading fee rate.
var defaultFeeRates = map[string]float64{
	"uniswap-v3-500":   0.0005,
	"uniswap-v3-3000":  0.003,
	"uniswap-v3-10000": 0.01,
	"uniswap-v3":       0.003,
	"sushiswap":        0.003,
	"pancakeswap-v3":   0.0025,
	"curve":            0.0004, // StableSwap pools
	"curve-crypto":     0.003,
	"thala":            0.003,
	"raydium":          0.0025,
	"orca":             0.003,
	"jupiter":          0.0, // Aggregator itself charges nothing
	"lido":             0.0,
	"marinade":         0.0,
	"aave-v3":          0.0, // Lending has no trading fee
	"compound-v3":      0.0,
}
