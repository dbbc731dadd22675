package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shunichi-ikebuchi/bizbook/pkg/business"
)

// listsCmd represents the lists command.
var listsCmd = &cobra.Command{
	Use:   "lists",
	Short: "Show distribution lists and their co-owners",
	Run:   runLists,
}

func runLists(cmd *cobra.Command, args []string) {
	cfg, resolver := loadConfig()

	s := openSession(cfg.Book.Backend, resolver, false)
	defer s.Close()
	b := s.Book()

	members := make(map[*business.DistributionList][]*business.CoOwner)
	var unassigned []*business.CoOwner
	for _, co := range business.CoOwners(b) {
		dl := co.DistribList()
		if dl == nil {
			unassigned = append(unassigned, co)
			continue
		}
		members[dl] = append(members[dl], co)
	}

	lists := business.DistribLists(b)
	if len(lists) == 0 {
		fmt.Println("No distribution lists")
	}
	for _, dl := range lists {
		total, label := dl.SharesTotal(), dl.SharesLabelSettlement()
		if dl.Type() == business.DistribListTypePercentage {
			total, label = dl.PercentageTotal(), dl.PercentageLabelSettlement()
		}
		fmt.Printf("\n%s (%s, total %d", dl.Name(), dl.Type(), total)
		if label != "" {
			fmt.Printf(", settles as %q", label)
		}
		fmt.Printf(", %d references, %d frozen copies)\n", dl.Refcount(), len(dl.Children()))
		if dl.Description() != "" {
			fmt.Printf("  %s\n", dl.Description())
		}
		for _, co := range members[dl] {
			fmt.Printf("  %-10s %-30s share %s\n", co.ID(), co.Name(), co.AptShare())
		}
	}

	if len(unassigned) > 0 {
		fmt.Println("\nCo-owners without a list:")
		for _, co := range unassigned {
			fmt.Printf("  %-10s %s\n", co.ID(), co.Name())
		}
	}
	fmt.Println()
}
