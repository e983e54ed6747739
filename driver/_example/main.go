// Copyright 2020-2023 Dolthub, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"database/sql"
	"fmt"
	"log"

	sqledriver "github.com/ppds-sql/queryengine/driver"
)

func main() {
	sql.Register("ppds", sqledriver.New(collaborators()))

	db, err := sql.Open("ppds", "")
	must(err)

	rows, err := db.Query("SELECT name, email FROM contact")
	must(err)
	dump(rows)
}

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}

func dump(rows *sql.Rows) {
	var name, email string
	for rows.Next() {
		must(rows.Scan(&name, &email))
		fmt.Println(name, email)
	}
}
