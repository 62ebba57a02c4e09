package models

// Product is the catalog view the reconciler needs for seller attribution.
type Product struct {
	ID          string  `json:"id" bson:"_id" dynamodbav:"product_id"`
	Name        string  `json:"name" bson:"name" dynamodbav:"name"`
	Price       float64 `json:"price" bson:"price" dynamodbav:"price"`
	SellerID    string  `json:"sellerId" bson:"sellerId" dynamodbav:"seller_id"`
	SellerEmail string  `json:"sellerEmail,omitempty" bson:"sellerEmail,omitempty" dynamodbav:"seller_email,omitempty"`
}
