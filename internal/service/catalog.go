package service

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lipo-out/linebot/internal/model"
)

// DefaultCatalog returns the bookable travel products.
func DefaultCatalog() []model.CatalogItem {
	return []model.CatalogItem{
		{ID: "P001", Name: "小琉球潛水＋島語英語營", Duration: 8, Price: 42000, Tags: []string{"潛水", "英語"}},
		{ID: "P002", Name: "花東部落文化深潛旅", Duration: 14, Price: 68000, Tags: []string{"潛水", "文化"}},
		{ID: "P003", Name: "峇里島遠距工作瑜伽包", Duration: 21, Price: 95000, Tags: []string{"瑜伽", "遠距"}},
	}
}

// SearchCatalog filters items by criteria. All constraints are AND-combined:
// duration within [min,max] inclusive, price at most the budget (zero budget
// means uncapped), and every requested tag present in the item's tag set.
// Tag matching is exact and case-sensitive.
func SearchCatalog(items []model.CatalogItem, criteria model.TravelCriteria) []model.CatalogItem {
	durationMin := criteria.DurationMin
	if durationMin <= 0 {
		durationMin = 1
	}
	durationMax := criteria.DurationMax
	if durationMax <= 0 {
		durationMax = 365
	}

	var results []model.CatalogItem
	for _, item := range items {
		if item.Duration < durationMin || item.Duration > durationMax {
			continue
		}
		if criteria.BudgetTWD > 0 && item.Price > criteria.BudgetTWD {
			continue
		}
		if !hasAllTags(item.Tags, criteria.Tags) {
			continue
		}
		results = append(results, item)
	}
	return results
}

func hasAllTags(itemTags, wanted []string) bool {
	for _, tag := range wanted {
		found := false
		for _, have := range itemTags {
			if have == tag {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

var (
	budgetWanPattern  = regexp.MustCompile(`(\d+)\s*萬`)
	budgetYuanPattern = regexp.MustCompile(`(\d+)\s*[元塊]`)
	durationPattern   = regexp.MustCompile(`(\d+)\s*[天日]`)
)

// tagKeywords maps surface keywords in user text to catalog tags.
var tagKeywords = []struct {
	keywords []string
	tag      string
}{
	{[]string{"潛水"}, "潛水"},
	{[]string{"英語", "英文"}, "英語"},
	{[]string{"文化"}, "文化"},
	{[]string{"瑜伽"}, "瑜伽"},
	{[]string{"遠距", "工作"}, "遠距"},
}

// ExtractCriteria derives search criteria straight from the user's literal
// text: budget figures ("5萬" reads as 50000, "5000元" as 5000), a stated
// day count widened by ±2 days, and recognized tag keywords. Returns false
// when no tag keyword was found, since a match attempt needs at least one.
func ExtractCriteria(text string) (model.TravelCriteria, bool) {
	criteria := model.TravelCriteria{
		DurationMin: 1,
		DurationMax: 365,
		BudgetTWD:   100000,
	}

	if strings.Contains(text, "預算") {
		if m := budgetWanPattern.FindStringSubmatch(text); m != nil {
			if amount, err := strconv.Atoi(m[1]); err == nil {
				criteria.BudgetTWD = amount * 10000
			}
		} else if m := budgetYuanPattern.FindStringSubmatch(text); m != nil {
			if amount, err := strconv.Atoi(m[1]); err == nil {
				criteria.BudgetTWD = amount
			}
		}
	}

	if m := durationPattern.FindStringSubmatch(text); m != nil {
		if days, err := strconv.Atoi(m[1]); err == nil {
			criteria.DurationMin = max(days-2, 1)
			criteria.DurationMax = days + 2
		}
	}

	for _, entry := range tagKeywords {
		for _, keyword := range entry.keywords {
			if strings.Contains(text, keyword) {
				criteria.Tags = append(criteria.Tags, entry.tag)
				break
			}
		}
	}

	if len(criteria.Tags) == 0 {
		return model.TravelCriteria{}, false
	}
	return criteria, true
}

// NewOrder synthesizes an order for a product. There is no real payment
// integration; the payment link is a stub a payment collaborator would
// replace.
func NewOrder(productID, date string) *model.Order {
	return &model.Order{
		OrderID:     "ORD-" + uuid.NewString(),
		ProductID:   productID,
		Date:        date,
		PaymentLink: fmt.Sprintf("https://pay.demo/tx/%s-%d", productID, time.Now().UnixMilli()),
	}
}

// FormatSearchResults renders matched products as a numbered list the user
// can pick from by replying with the entry number.
func FormatSearchResults(results []model.CatalogItem) string {
	var b strings.Builder
	b.WriteString("根據您的需求，我找到了以下旅行方案：\n\n")
	for i, item := range results {
		fmt.Fprintf(&b, "%d. %s\n", i+1, item.Name)
		fmt.Fprintf(&b, "   ⏱️ 天數：%d 天\n", item.Duration)
		fmt.Fprintf(&b, "   💰 價格：%d 元\n", item.Price)
		fmt.Fprintf(&b, "   🏷️ 標籤：%s\n\n", strings.Join(item.Tags, "、"))
	}
	b.WriteString("如果您對某個方案感興趣，請回覆方案編號，我可以為您提供更多詳細資訊或協助您預訂。")
	return b.String()
}
