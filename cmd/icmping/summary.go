// Copyright 2025 icmping Author. All Rights Reserved.
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//      http://www.apache.org/licenses/LICENSE-2.0
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"io"
	"time"

	"github.com/go-the-way/icmping"
	"github.com/olekukonko/tablewriter"
)

func printSummary(w io.Writer, host string, st *icmping.Stats) {
	fmt.Fprintf(w, "\n--- %s ping statistics ---\n", host)
	table := tablewriter.NewWriter(w)
	table.Header("Sent", "Received", "Late", "Loss", "Min", "Avg", "Max")
	_ = table.Append([]string{
		fmt.Sprint(st.Tx()),
		fmt.Sprint(st.Rx()),
		fmt.Sprint(st.LateReplies()),
		fmt.Sprintf("%.1f%%", st.Loss()*100),
		formatRtt(st.Min()),
		formatRtt(st.Latency()),
		formatRtt(st.Max()),
	})
	if err := table.Render(); err != nil {
		log.Warningf("%s: render summary: %v", appName, err)
	}
}

func printHops(w io.Writer, hops []*icmping.Hop) {
	if len(hops) == 0 {
		return
	}
	fmt.Fprintln(w)
	table := tablewriter.NewWriter(w)
	table.Header("TTL", "Address", "RTT", "Outcome")
	for _, h := range hops {
		addr, rtt := "*", "-"
		if !h.Lost() {
			addr, rtt = h.From.String(), formatRtt(h.RTT)
		}
		_ = table.Append([]string{fmt.Sprint(h.TTL), addr, rtt, icmping.Outcome(h.Response)})
	}
	if err := table.Render(); err != nil {
		log.Warningf("%s: render hops: %v", appName, err)
	}
}

func formatRtt(d time.Duration) string {
	if d == 0 {
		return "-"
	}
	return fmt.Sprintf("%.3f ms", millis(d))
}
