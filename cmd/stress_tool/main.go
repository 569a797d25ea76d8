package main

import (
	"flag"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
)

// 对运行中的服务并发提交 COD 订单，检查订单号是否全部唯一
// 注意下单接口按 IP 限流，压测前需调大 rate_limit.checkout
func main() {
	baseURL := flag.String("url", "http://localhost:8080", "server base url")
	total := flag.Int("n", 1000, "total checkouts")
	concurrency := flag.Int("c", 50, "concurrent clients")
	flag.Parse()

	client := resty.New().
		SetBaseURL(*baseURL).
		SetTimeout(10 * time.Second).
		SetHeader("Content-Type", "application/json")

	type checkoutResp struct {
		Success bool `json:"success"`
		Data    struct {
			OrderID   string `json:"orderId"`
			OrderCode string `json:"orderCode"`
		} `json:"data"`
	}

	var (
		mu        sync.Mutex
		wg        sync.WaitGroup
		codes     = make(map[string]int, *total)
		success   int
		limited   int
		failed    int
		durations []time.Duration
	)

	fmt.Printf("开始压测：%d 个下单请求，并发 %d ...\n", *total, *concurrency)
	jobs := make(chan int)
	start := time.Now()

	for w := 0; w < *concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				var out checkoutResp
				begin := time.Now()
				resp, err := client.R().SetBody(cart(i)).SetResult(&out).Post("/api/checkout")
				cost := time.Since(begin)

				mu.Lock()
				durations = append(durations, cost)
				switch {
				case err != nil:
					failed++
				case resp.StatusCode() == http.StatusTooManyRequests:
					limited++
				case resp.StatusCode() != http.StatusOK || !out.Success:
					failed++
				default:
					success++
					codes[out.Data.OrderCode]++
				}
				mu.Unlock()
			}
		}()
	}

	for i := 0; i < *total; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	elapsed := time.Since(start)

	duplicates := 0
	for code, n := range codes {
		if n > 1 {
			duplicates += n - 1
			fmt.Printf("重复订单号: %s x%d\n", code, n)
		}
	}

	var sum time.Duration
	for _, d := range durations {
		sum += d
	}
	avg := time.Duration(0)
	if len(durations) > 0 {
		avg = sum / time.Duration(len(durations))
	}

	fmt.Println("--------------------------------------------------")
	fmt.Printf("压测结束，耗时: %v\n", elapsed)
	fmt.Printf("QPS: %.2f, 平均延迟: %v\n", float64(*total)/elapsed.Seconds(), avg)
	fmt.Printf("成功: %d, 被限流: %d, 失败: %d\n", success, limited, failed)
	fmt.Printf("订单号: %d 个, 重复: %d\n", len(codes), duplicates)
	fmt.Println("--------------------------------------------------")
}

func cart(i int) map[string]interface{} {
	return map[string]interface{}{
		"customer": map[string]string{
			"name":    fmt.Sprintf("Khach hang %d", i),
			"phone":   "0900000000",
			"email":   fmt.Sprintf("load%d@example.vn", i),
			"address": "12 Le Loi, Q1, TP.HCM",
		},
		"items": []map[string]interface{}{
			{"id": "p-1", "name": "May khoan", "price": 1000000, "quantity": 2},
		},
		"paymentMethod": "COD",
	}
}
