package commands

import (
	"github.com/spf13/cobra"
)

//RootCmd is the root command for eventgate
var RootCmd = &cobra.Command{
	Use:              "eventgate",
	Short:            "event intake and creation for hashgraph nodes",
	TraverseChildren: true,
}
